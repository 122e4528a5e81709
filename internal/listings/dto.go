package listings

import (
	"time"

	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ListingDTO represents the listing payload returned to clients.
type ListingDTO struct {
	ID             uuid.UUID `json:"id"`
	StoreID        uuid.UUID `json:"store_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Description    *string   `json:"description,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewListingDTO builds a DTO from the persisted model.
func NewListingDTO(listing *models.Listing) *ListingDTO {
	return &ListingDTO{
		ID:             listing.ID,
		StoreID:        listing.StoreID,
		Name:           listing.Name,
		Category:       listing.Category,
		Description:    listing.Description,
		Tags:           append([]string{}, listing.Tags...),
		UnitPriceCents: listing.UnitPriceCents,
		Quantity:       listing.Quantity,
		CreatedAt:      listing.CreatedAt,
		UpdatedAt:      listing.UpdatedAt,
	}
}
