package enums

import "fmt"

// EarningStatus tracks the accrual state of a farmer earning line.
type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "PENDING"
	EarningStatusConfirmed EarningStatus = "CONFIRMED"
	EarningStatusPaid      EarningStatus = "PAID"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusConfirmed,
	EarningStatusPaid,
}

// String implements fmt.Stringer.
func (s EarningStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EarningStatus.
func (s EarningStatus) IsValid() bool {
	for _, candidate := range validEarningStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEarningStatus converts raw input into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	for _, candidate := range validEarningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning status %q", value)
}
