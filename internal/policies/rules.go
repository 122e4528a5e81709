package policies

import (
	"fmt"
	"strings"

	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MinQtyRule requires at least Min units of the listing whenever it appears
// in the basket.
type MinQtyRule struct {
	ListingID uuid.UUID
	Min       int
}

func (r MinQtyRule) Check(basket Basket) error {
	for _, line := range basket.Lines {
		if line.ListingID == r.ListingID && line.Qty < r.Min {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "listing requires a minimum of %d units", r.Min)
		}
	}
	return nil
}

func (r MinQtyRule) Describe() string {
	return fmt.Sprintf("min_qty(%s >= %d)", r.ListingID, r.Min)
}

// MaxQtyRule caps the units of the listing a single purchase may take.
type MaxQtyRule struct {
	ListingID uuid.UUID
	Max       int
}

func (r MaxQtyRule) Check(basket Basket) error {
	for _, line := range basket.Lines {
		if line.ListingID == r.ListingID && line.Qty > r.Max {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "listing is capped at %d units per purchase", r.Max)
		}
	}
	return nil
}

func (r MaxQtyRule) Describe() string {
	return fmt.Sprintf("max_qty(%s <= %d)", r.ListingID, r.Max)
}

// CategoryMaxRule caps the combined units of a category per purchase.
type CategoryMaxRule struct {
	Category string
	Max      int
}

func (r CategoryMaxRule) Check(basket Basket) error {
	total := 0
	for _, line := range basket.Lines {
		if strings.EqualFold(line.Category, r.Category) {
			total += line.Qty
		}
	}
	if total > r.Max {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "category %q is capped at %d units per purchase", r.Category, r.Max)
	}
	return nil
}

func (r CategoryMaxRule) Describe() string {
	return fmt.Sprintf("category_max(%s <= %d)", r.Category, r.Max)
}

// AllOf passes only when every child rule passes.
type AllOf struct {
	Rules []PurchaseRule
}

func (r AllOf) Check(basket Basket) error {
	for _, rule := range r.Rules {
		if err := rule.Check(basket); err != nil {
			return err
		}
	}
	return nil
}

func (r AllOf) Describe() string {
	parts := make([]string, len(r.Rules))
	for i, rule := range r.Rules {
		parts[i] = rule.Describe()
	}
	return "all_of(" + strings.Join(parts, ", ") + ")"
}

// AnyOf passes when at least one child rule passes.
type AnyOf struct {
	Rules []PurchaseRule
}

func (r AnyOf) Check(basket Basket) error {
	if len(r.Rules) == 0 {
		return nil
	}
	var last error
	for _, rule := range r.Rules {
		if err := rule.Check(basket); err == nil {
			return nil
		} else {
			last = err
		}
	}
	return last
}

func (r AnyOf) Describe() string {
	parts := make([]string, len(r.Rules))
	for i, rule := range r.Rules {
		parts[i] = rule.Describe()
	}
	return "any_of(" + strings.Join(parts, ", ") + ")"
}

// PercentOffListing discounts a single listing's lines by a percentage.
type PercentOffListing struct {
	ListingID uuid.UUID
	Percent   decimal.Decimal
}

func (r PercentOffListing) DiscountCents(basket Basket) int64 {
	var subtotal int64
	for _, line := range basket.Lines {
		if line.ListingID == r.ListingID {
			subtotal += line.UnitPriceCents * int64(line.Qty)
		}
	}
	return percentOf(subtotal, r.Percent)
}

func (r PercentOffListing) Describe() string {
	return fmt.Sprintf("percent_listing(%s, %s%%)", r.ListingID, r.Percent)
}

// PercentOffCategory discounts every line in a category by a percentage.
type PercentOffCategory struct {
	Category string
	Percent  decimal.Decimal
}

func (r PercentOffCategory) DiscountCents(basket Basket) int64 {
	var subtotal int64
	for _, line := range basket.Lines {
		if strings.EqualFold(line.Category, r.Category) {
			subtotal += line.UnitPriceCents * int64(line.Qty)
		}
	}
	return percentOf(subtotal, r.Percent)
}

func (r PercentOffCategory) Describe() string {
	return fmt.Sprintf("percent_category(%s, %s%%)", r.Category, r.Percent)
}

// PercentOffStore discounts the whole basket by a percentage.
type PercentOffStore struct {
	Percent decimal.Decimal
}

func (r PercentOffStore) DiscountCents(basket Basket) int64 {
	return percentOf(basket.SubtotalCents(), r.Percent)
}

func (r PercentOffStore) Describe() string {
	return fmt.Sprintf("percent_store(%s%%)", r.Percent)
}

// ConditionalDiscount applies the inner discount only when the condition
// rule passes.
type ConditionalDiscount struct {
	Condition PurchaseRule
	Inner     DiscountRule
}

func (r ConditionalDiscount) DiscountCents(basket Basket) int64 {
	if r.Condition != nil && r.Condition.Check(basket) != nil {
		return 0
	}
	return r.Inner.DiscountCents(basket)
}

func (r ConditionalDiscount) Describe() string {
	return fmt.Sprintf("conditional(%s -> %s)", r.Condition.Describe(), r.Inner.Describe())
}

// BestOf keeps the single largest discount among its children. Discounts in
// one set never stack.
type BestOf struct {
	Rules []DiscountRule
}

func (r BestOf) DiscountCents(basket Basket) int64 {
	var best int64
	for _, rule := range r.Rules {
		if d := rule.DiscountCents(basket); d > best {
			best = d
		}
	}
	return best
}

func (r BestOf) Describe() string {
	parts := make([]string, len(r.Rules))
	for i, rule := range r.Rules {
		parts[i] = rule.Describe()
	}
	return "best_of(" + strings.Join(parts, ", ") + ")"
}

// percentOf computes pct% of cents, rounded half-up to a whole cent.
func percentOf(cents int64, pct decimal.Decimal) int64 {
	if cents <= 0 || pct.Sign() <= 0 {
		return 0
	}
	discount := decimal.NewFromInt(cents).Mul(pct).Div(hundred).Round(0).IntPart()
	if discount > cents {
		return cents
	}
	return discount
}
