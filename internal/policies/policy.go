package policies

import (
	"github.com/google/uuid"
)

// Line is one priced basket line a policy evaluates against.
type Line struct {
	ListingID      uuid.UUID
	Category       string
	Qty            int
	UnitPriceCents int64
}

// Basket is the per-store slice of a checkout a policy sees.
type Basket struct {
	StoreID uuid.UUID
	Lines   []Line
}

// SubtotalCents sums every line before discounts.
func (b Basket) SubtotalCents() int64 {
	var total int64
	for _, line := range b.Lines {
		total += line.UnitPriceCents * int64(line.Qty)
	}
	return total
}

// PurchaseRule accepts or rejects a basket. A nil error means the purchase
// may proceed.
type PurchaseRule interface {
	Check(basket Basket) error
	Describe() string
}

// DiscountRule computes a discount in cents for a basket. Rules never return
// more than the basket subtotal.
type DiscountRule interface {
	DiscountCents(basket Basket) int64
	Describe() string
}
