package auctions

import (
	"context"
	"fmt"
	"time"

	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service runs timed auctions: staff open one with a starting price and a
// deadline, buyers outbid each other, and at the deadline the highest offer
// settles unattended.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*AuctionDTO, error)
	SubmitOffer(ctx context.Context, auctionID uuid.UUID, input OfferInput) (*AuctionDTO, error)
	Status(ctx context.Context, auctionID uuid.UUID) (*AuctionStatusDTO, error)
	Close(ctx context.Context, auctionID uuid.UUID) (*AuctionDTO, error)
	CloseExpired(ctx context.Context) (int, error)
}

// OpenInput opens an auction on a listing.
type OpenInput struct {
	ActorID       uuid.UUID
	StoreID       uuid.UUID
	ListingID     uuid.UUID
	Qty           int
	StartingCents int64
	EndTime       time.Time
}

// OfferInput carries an offer plus the payment and shipping details the
// settlement will run with if this offer wins.
type OfferInput struct {
	BidderID    uuid.UUID
	AmountCents int64
	Card        purchases.CardDetails
	Destination purchases.Destination
}

type storeGate interface {
	EnsureStoreOpen(ctx context.Context, storeID uuid.UUID) error
	EnsureCanEditListings(ctx context.Context, storeID, actorID uuid.UUID) error
}

type listingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type settler interface {
	Settle(ctx context.Context, input purchases.SettlementInput) (*purchases.ReceiptDTO, error)
}

type service struct {
	engine    *Engine
	stores    storeGate
	listings  listingReader
	settler   settler
	scheduler Scheduler
	events    notifications.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the auction service. The scheduler drives the unattended
// close at each auction's deadline.
func NewService(
	engine *Engine,
	stores storeGate,
	listings listingReader,
	settler settler,
	scheduler Scheduler,
	events notifications.Publisher,
	logg *logger.Logger,
) (Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("auction engine required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store gate required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	if events == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		engine:    engine,
		stores:    stores,
		listings:  listings,
		settler:   settler,
		scheduler: scheduler,
		events:    events,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*AuctionDTO, error) {
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.StartingCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "starting price cannot be negative")
	}
	now := s.now()
	if !input.EndTime.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction end time must be in the future")
	}
	if err := s.stores.EnsureStoreOpen(ctx, input.StoreID); err != nil {
		return nil, err
	}
	if err := s.stores.EnsureCanEditListings(ctx, input.StoreID, input.ActorID); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.StoreID != input.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found in store")
	}

	a := &auction{
		id:            uuid.New(),
		storeID:       input.StoreID,
		listingID:     input.ListingID,
		qty:           input.Qty,
		startingCents: input.StartingCents,
		endTime:       input.EndTime,
	}
	if err := s.engine.add(a); err != nil {
		return nil, err
	}
	a.cancelTimer = s.scheduler.Schedule(input.EndTime.Sub(now), func() {
		if _, err := s.close(context.Background(), a.id, true); err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.logg.Error(s.logg.WithStoreID(context.Background(), a.storeID.String()), "closing auction at deadline", err)
		}
	})

	return s.snapshot(a), nil
}

func (s *service) SubmitOffer(ctx context.Context, auctionID uuid.UUID, input OfferInput) (*AuctionDTO, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer must be positive")
	}

	a, err := s.engine.get(auctionID)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || !a.endTime.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction has ended")
	}
	floor := a.startingCents
	if a.maxOffer != nil {
		floor = a.maxOffer.AmountCents
	}
	if input.AmountCents <= floor {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "offer must be higher than current maximum")
	}
	a.maxOffer = &offer{
		BidderID:    input.BidderID,
		AmountCents: input.AmountCents,
		Card:        input.Card,
		Dest:        input.Destination,
	}
	return newAuctionDTO(a), nil
}

func (s *service) Status(_ context.Context, auctionID uuid.UUID) (*AuctionStatusDTO, error) {
	a, err := s.engine.get(auctionID)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	status := &AuctionStatusDTO{
		AuctionID:     a.id,
		StartingCents: a.startingCents,
	}
	if a.maxOffer != nil {
		status.CurrentMaxCents = a.maxOffer.AmountCents
	}
	if left := a.endTime.Sub(s.now()); left > 0 {
		status.TimeLeftMillis = left.Milliseconds()
	}
	return status, nil
}

// Close ends the auction and settles the highest offer, if any. A manual
// close before the deadline is rejected; whoever removes the auction from the
// index settles it, and a second close, manual or scheduled, finds nothing.
func (s *service) Close(ctx context.Context, auctionID uuid.UUID) (*AuctionDTO, error) {
	return s.close(ctx, auctionID, false)
}

func (s *service) close(ctx context.Context, auctionID uuid.UUID, atDeadline bool) (*AuctionDTO, error) {
	if !atDeadline {
		a, err := s.engine.get(auctionID)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		ended := !a.endTime.After(s.now())
		a.mu.Unlock()
		if !ended {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction has not ended yet")
		}
	}

	a, ok := s.engine.remove(auctionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	if a.cancelTimer != nil {
		a.cancelTimer()
	}

	if a.maxOffer == nil {
		s.events.Publish(ctx, notifications.Event{
			Type:      notifications.EventAuctionClosed,
			StoreID:   a.storeID,
			ListingID: a.listingID,
			Message:   "auction closed with no offers",
		})
		return newAuctionDTO(a), nil
	}

	winner := a.maxOffer
	receipt, err := s.settler.Settle(ctx, purchases.SettlementInput{
		BuyerID:     winner.BidderID,
		StoreID:     a.storeID,
		ListingID:   a.listingID,
		Qty:         a.qty,
		PriceCents:  winner.AmountCents,
		Kind:        enums.PurchaseKindAuction,
		Card:        winner.Card,
		Destination: winner.Dest,
	})
	if err != nil {
		// The auction is already torn down; the sale is simply lost.
		s.logg.Error(s.logg.WithStoreID(ctx, a.storeID.String()), "settling auction winner", err)
		s.events.Publish(ctx, notifications.Event{
			Type:      notifications.EventAuctionClosed,
			StoreID:   a.storeID,
			ListingID: a.listingID,
			UserID:    winner.BidderID,
			Message:   "auction closed but the winning offer could not be settled",
		})
		return nil, err
	}

	s.events.Publish(ctx, notifications.Event{
		Type:      notifications.EventAuctionWon,
		StoreID:   a.storeID,
		ListingID: a.listingID,
		UserID:    winner.BidderID,
		Message:   fmt.Sprintf("you won the auction, purchase %s", receipt.PurchaseID),
	})
	return newAuctionDTO(a), nil
}

// CloseExpired closes every auction past its deadline. The sweep job calls
// this as a backstop for timers lost to a process restart.
func (s *service) CloseExpired(ctx context.Context) (int, error) {
	var closed int
	var firstErr error
	for _, id := range s.engine.expired(s.now()) {
		if _, err := s.close(ctx, id, true); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		closed++
	}
	return closed, firstErr
}

func (s *service) snapshot(a *auction) *AuctionDTO {
	a.mu.Lock()
	defer a.mu.Unlock()
	return newAuctionDTO(a)
}
