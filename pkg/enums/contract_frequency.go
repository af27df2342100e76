package enums

import (
	"fmt"
	"time"
)

// ContractFrequency is the recurrence cadence of a contract order.
type ContractFrequency string

const (
	ContractFrequencyWeekly   ContractFrequency = "WEEKLY"
	ContractFrequencyBiweekly ContractFrequency = "BIWEEKLY"
	ContractFrequencyMonthly  ContractFrequency = "MONTHLY"
)

var validContractFrequencies = []ContractFrequency{
	ContractFrequencyWeekly,
	ContractFrequencyBiweekly,
	ContractFrequencyMonthly,
}

// String implements fmt.Stringer.
func (f ContractFrequency) String() string {
	return string(f)
}

// IsValid reports whether the value is a known ContractFrequency.
func (f ContractFrequency) IsValid() bool {
	for _, candidate := range validContractFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// Next returns the delivery date that follows from.
func (f ContractFrequency) Next(from time.Time) time.Time {
	switch f {
	case ContractFrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case ContractFrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// ParseContractFrequency converts raw input into a ContractFrequency.
func ParseContractFrequency(value string) (ContractFrequency, error) {
	for _, candidate := range validContractFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract frequency %q", value)
}
