package enums

import "fmt"

// CatalogEntryKind names the table a sellable catalog entry lives in. Order
// lines, stock reservations, and sale counters all dispatch on it.
type CatalogEntryKind string

const (
	CatalogEntryProduce  CatalogEntryKind = "PRODUCE"
	CatalogEntryMixedBox CatalogEntryKind = "MIXED_BOX"
	CatalogEntryDryGoods CatalogEntryKind = "DRY_GOODS"
)

var validCatalogEntryKinds = []CatalogEntryKind{
	CatalogEntryProduce,
	CatalogEntryMixedBox,
	CatalogEntryDryGoods,
}

// String implements fmt.Stringer.
func (k CatalogEntryKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CatalogEntryKind.
func (k CatalogEntryKind) IsValid() bool {
	for _, candidate := range validCatalogEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseCatalogEntryKind converts raw input into a CatalogEntryKind.
func ParseCatalogEntryKind(value string) (CatalogEntryKind, error) {
	for _, candidate := range validCatalogEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid catalog entry kind %q", value)
}
