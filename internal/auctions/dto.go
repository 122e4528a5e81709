package auctions

import (
	"time"

	"github.com/google/uuid"
)

// AuctionDTO is the wire shape of an auction.
type AuctionDTO struct {
	ID              uuid.UUID `json:"id"`
	StoreID         uuid.UUID `json:"store_id"`
	ListingID       uuid.UUID `json:"listing_id"`
	Qty             int       `json:"qty"`
	StartingCents   int64     `json:"starting_cents"`
	CurrentMaxCents int64     `json:"current_max_cents"`
	EndTime         time.Time `json:"end_time"`
	Closed          bool      `json:"closed"`
}

// AuctionStatusDTO is the buyer-facing countdown view.
type AuctionStatusDTO struct {
	AuctionID       uuid.UUID `json:"auction_id"`
	StartingCents   int64     `json:"starting_cents"`
	CurrentMaxCents int64     `json:"current_max_cents"`
	TimeLeftMillis  int64     `json:"time_left_millis"`
}

// newAuctionDTO projects an auction; the caller holds the auction mutex.
func newAuctionDTO(a *auction) *AuctionDTO {
	dto := &AuctionDTO{
		ID:            a.id,
		StoreID:       a.storeID,
		ListingID:     a.listingID,
		Qty:           a.qty,
		StartingCents: a.startingCents,
		EndTime:       a.endTime,
		Closed:        a.closed,
	}
	if a.maxOffer != nil {
		dto.CurrentMaxCents = a.maxOffer.AmountCents
	}
	return dto
}
