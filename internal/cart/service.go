package cart

import (
	"context"
	"fmt"

	"github.com/openmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service exposes shopping cart operations.
type Service interface {
	AddItem(ctx context.Context, buyerID, storeID, listingID uuid.UUID, qty int) error
	SetItemQty(ctx context.Context, buyerID, storeID, listingID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, buyerID, storeID, listingID uuid.UUID) error
	View(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error)
}

type listingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type service struct {
	registry *Registry
	listings listingReader
}

// NewService wires cart dependencies.
func NewService(registry *Registry, listings listingReader) (Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("cart registry required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	return &service{registry: registry, listings: listings}, nil
}

func (s *service) AddItem(ctx context.Context, buyerID, storeID, listingID uuid.UUID, qty int) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.StoreID != storeID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not sold by this store")
	}
	return s.registry.CartFor(buyerID).Add(storeID, listingID, qty)
}

func (s *service) SetItemQty(ctx context.Context, buyerID, storeID, listingID uuid.UUID, qty int) error {
	return s.registry.CartFor(buyerID).SetQty(storeID, listingID, qty)
}

func (s *service) RemoveItem(ctx context.Context, buyerID, storeID, listingID uuid.UUID) error {
	return s.registry.CartFor(buyerID).Remove(storeID, listingID)
}

// View prices every line at its current listing price. Lines whose listing
// has vanished are surfaced with a zero price so the client can drop them.
func (s *service) View(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error) {
	items := s.registry.CartFor(buyerID).Items()

	dto := &CartDTO{Bags: []BagDTO{}}
	bagIndex := map[uuid.UUID]int{}
	for _, item := range items {
		line := LineDTO{ListingID: item.ListingID, Qty: item.Qty}
		if listing, err := s.listings.GetByID(ctx, item.ListingID); err == nil {
			line.Name = listing.Name
			line.UnitPriceCents = listing.UnitPriceCents
			line.SubtotalCents = listing.UnitPriceCents * int64(item.Qty)
		} else if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		} else {
			line.Unavailable = true
		}

		idx, ok := bagIndex[item.StoreID]
		if !ok {
			dto.Bags = append(dto.Bags, BagDTO{StoreID: item.StoreID})
			idx = len(dto.Bags) - 1
			bagIndex[item.StoreID] = idx
		}
		dto.Bags[idx].Lines = append(dto.Bags[idx].Lines, line)
		dto.Bags[idx].SubtotalCents += line.SubtotalCents
		dto.TotalCents += line.SubtotalCents
	}
	return dto, nil
}
