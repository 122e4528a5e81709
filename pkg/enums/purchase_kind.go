package enums

import "fmt"

// PurchaseKind records which purchase mode produced a purchase record.
type PurchaseKind string

const (
	PurchaseKindRegular PurchaseKind = "regular"
	PurchaseKindBid     PurchaseKind = "bid"
	PurchaseKindAuction PurchaseKind = "auction"
)

var validPurchaseKinds = []PurchaseKind{
	PurchaseKindRegular,
	PurchaseKindBid,
	PurchaseKindAuction,
}

// String implements fmt.Stringer.
func (p PurchaseKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseKind.
func (p PurchaseKind) IsValid() bool {
	for _, candidate := range validPurchaseKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseKind converts raw input into a PurchaseKind.
func ParsePurchaseKind(value string) (PurchaseKind, error) {
	for _, candidate := range validPurchaseKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase kind %q", value)
}
