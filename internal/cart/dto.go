package cart

import "github.com/google/uuid"

// CartDTO is the priced view of a buyer's cart.
type CartDTO struct {
	Bags       []BagDTO `json:"bags"`
	TotalCents int64    `json:"total_cents"`
}

// BagDTO groups cart lines by store.
type BagDTO struct {
	StoreID       uuid.UUID `json:"store_id"`
	Lines         []LineDTO `json:"lines"`
	SubtotalCents int64     `json:"subtotal_cents"`
}

// LineDTO is one priced cart line.
type LineDTO struct {
	ListingID      uuid.UUID `json:"listing_id"`
	Name           string    `json:"name,omitempty"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	Unavailable    bool      `json:"unavailable,omitempty"`
}
