package listings

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service exposes store listing management operations.
type Service interface {
	CreateListing(ctx context.Context, actorID, storeID uuid.UUID, input CreateListingInput) (*ListingDTO, error)
	UpdateListing(ctx context.Context, actorID, storeID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error)
	DeleteListing(ctx context.Context, actorID, storeID, listingID uuid.UUID) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error)
	ListStoreListings(ctx context.Context, storeID uuid.UUID) ([]ListingDTO, error)
}

// CreateListingInput holds the validated payload to create a listing.
type CreateListingInput struct {
	Name           string
	Category       string
	Description    *string
	Tags           []string
	UnitPriceCents int64
	Quantity       int
}

// UpdateListingInput holds optional mutation values for a listing.
type UpdateListingInput struct {
	Name           *string
	Category       *string
	Description    *string
	Tags           *[]string
	UnitPriceCents *int64
	Quantity       *int
}

// editGate answers whether the actor may manage a store's catalog.
type editGate interface {
	EnsureCanEditListings(ctx context.Context, storeID, actorID uuid.UUID) error
}

type service struct {
	repo *Repository
	gate editGate
	logg *logger.Logger
}

// NewService constructs a listings service instance.
func NewService(repo *Repository, gate editGate, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if gate == nil {
		return nil, fmt.Errorf("edit gate required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gate: gate, logg: logg}, nil
}

func (s *service) CreateListing(ctx context.Context, actorID, storeID uuid.UUID, input CreateListingInput) (*ListingDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if err := s.gate.EnsureCanEditListings(ctx, storeID, actorID); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		ID:             uuid.New(),
		StoreID:        storeID,
		Name:           strings.TrimSpace(input.Name),
		Category:       strings.TrimSpace(input.Category),
		Description:    input.Description,
		Tags:           input.Tags,
		UnitPriceCents: input.UnitPriceCents,
		Quantity:       input.Quantity,
	}
	created, err := s.repo.Create(ctx, listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	ctx = s.logg.WithStoreID(ctx, storeID.String())
	s.logg.Info(s.logg.WithProductID(ctx, created.ID.String()), "listing created")

	return NewListingDTO(created), nil
}

func (s *service) UpdateListing(ctx context.Context, actorID, storeID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error) {
	if err := s.gate.EnsureCanEditListings(ctx, storeID, actorID); err != nil {
		return nil, err
	}

	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	applyUpdate(listing, input)
	if listing.UnitPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if listing.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	updated, err := s.repo.Update(ctx, listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}
	return NewListingDTO(updated), nil
}

func (s *service) DeleteListing(ctx context.Context, actorID, storeID, listingID uuid.UUID) error {
	if err := s.gate.EnsureCanEditListings(ctx, storeID, actorID); err != nil {
		return err
	}

	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.StoreID != storeID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	if err := s.repo.Delete(ctx, listingID); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithProductID(s.logg.WithStoreID(ctx, storeID.String()), listingID.String()), "listing deleted")
	return nil
}

func (s *service) GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return NewListingDTO(listing), nil
}

func (s *service) ListStoreListings(ctx context.Context, storeID uuid.UUID) ([]ListingDTO, error) {
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store listings")
	}
	dtos := make([]ListingDTO, len(rows))
	for i := range rows {
		dtos[i] = *NewListingDTO(&rows[i])
	}
	return dtos, nil
}

func validateCreate(input CreateListingInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing name is required")
	}
	if input.UnitPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	return nil
}

func applyUpdate(listing *models.Listing, input UpdateListingInput) {
	if input.Name != nil {
		listing.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		listing.Category = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		listing.Description = input.Description
	}
	if input.Tags != nil {
		listing.Tags = *input.Tags
	}
	if input.UnitPriceCents != nil {
		listing.UnitPriceCents = *input.UnitPriceCents
	}
	if input.Quantity != nil {
		listing.Quantity = *input.Quantity
	}
}
