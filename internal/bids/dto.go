package bids

import (
	"github.com/google/uuid"
)

// BidDTO is the wire shape of a negotiation. Approvals lists who has signed
// off so far; PendingApprovers lists who the bid still waits on.
type BidDTO struct {
	ID               uuid.UUID `json:"id"`
	StoreID          uuid.UUID `json:"store_id"`
	ListingID        uuid.UUID `json:"listing_id"`
	BuyerID          uuid.UUID `json:"buyer_id"`
	Qty              int       `json:"qty"`
	OfferCents       int64     `json:"offer_cents"`
	CounterCents     int64     `json:"counter_cents,omitempty"`
	Status           string    `json:"status"`
	PendingApprovers int       `json:"pending_approvers"`
}

// NewBidDTO projects a bid; the caller holds the bid mutex.
func NewBidDTO(b *bid) *BidDTO {
	pending := 0
	for _, approved := range b.approvals {
		if !approved {
			pending++
		}
	}
	return &BidDTO{
		ID:               b.id,
		StoreID:          b.storeID,
		ListingID:        b.listingID,
		BuyerID:          b.buyerID,
		Qty:              b.qty,
		OfferCents:       b.offerCents,
		CounterCents:     b.counterCents,
		Status:           b.status.String(),
		PendingApprovers: pending,
	}
}
