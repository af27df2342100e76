package enums

import "fmt"

// ProduceUnit is the unit a produce lot is sold in.
type ProduceUnit string

const (
	ProduceUnitKG      ProduceUnit = "KG"
	ProduceUnitCrates  ProduceUnit = "CRATES"
	ProduceUnitBunches ProduceUnit = "BUNCHES"
	ProduceUnitTubers  ProduceUnit = "TUBERS"
	ProduceUnitSacs    ProduceUnit = "SACS"
)

var validProduceUnits = []ProduceUnit{
	ProduceUnitKG,
	ProduceUnitCrates,
	ProduceUnitBunches,
	ProduceUnitTubers,
	ProduceUnitSacs,
}

// String implements fmt.Stringer.
func (u ProduceUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known ProduceUnit.
func (u ProduceUnit) IsValid() bool {
	for _, candidate := range validProduceUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseProduceUnit converts raw input into a ProduceUnit.
func ParseProduceUnit(value string) (ProduceUnit, error) {
	for _, candidate := range validProduceUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid produce unit %q", value)
}
