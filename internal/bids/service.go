package bids

import (
	"context"
	"fmt"

	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service runs price negotiations: a buyer offers below list price, every
// store approver in the quorum must sign off, and an approved bid settles
// immediately at the offered price.
type Service interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*BidDTO, error)
	Approve(ctx context.Context, ref BidRef, approverID uuid.UUID) (*BidDTO, error)
	Reject(ctx context.Context, ref BidRef, approverID uuid.UUID) (*BidDTO, error)
	CounterOffer(ctx context.Context, ref BidRef, priceCents int64) (*BidDTO, error)
	AcceptCounter(ctx context.Context, ref BidRef) (*BidDTO, error)
	DeclineCounter(ctx context.Context, ref BidRef) (*BidDTO, error)
	Status(ctx context.Context, ref BidRef) (string, error)
}

// BidRef addresses a negotiation by its natural key.
type BidRef struct {
	StoreID   uuid.UUID
	ListingID uuid.UUID
	BuyerID   uuid.UUID
}

// PlaceBidInput carries the offer plus the payment and shipping details the
// settlement will run with once the bid is approved.
type PlaceBidInput struct {
	BuyerID     uuid.UUID
	StoreID     uuid.UUID
	ListingID   uuid.UUID
	Qty         int
	OfferCents  int64
	Card        purchases.CardDetails
	Destination purchases.Destination
}

type approverSource interface {
	EnsureStoreOpen(ctx context.Context, storeID uuid.UUID) error
	BidApprovers(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)
}

type listingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type settler interface {
	Settle(ctx context.Context, input purchases.SettlementInput) (*purchases.ReceiptDTO, error)
}

type service struct {
	engine   *Engine
	stores   approverSource
	listings listingReader
	settler  settler
	events   notifications.Publisher
	logg     *logger.Logger
}

// NewService wires the negotiation service.
func NewService(
	engine *Engine,
	stores approverSource,
	listings listingReader,
	settler settler,
	events notifications.Publisher,
	logg *logger.Logger,
) (Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("bid engine required")
	}
	if stores == nil {
		return nil, fmt.Errorf("approver source required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	if events == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		engine:   engine,
		stores:   stores,
		listings: listings,
		settler:  settler,
		events:   events,
		logg:     logg,
	}, nil
}

func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*BidDTO, error) {
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.OfferCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer must be positive")
	}
	if err := s.stores.EnsureStoreOpen(ctx, input.StoreID); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.StoreID != input.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found in store")
	}

	approvers, err := s.stores.BidApprovers(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}
	if len(approvers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "store has no bid approvers")
	}

	b := &bid{
		id:         uuid.New(),
		storeID:    input.StoreID,
		listingID:  input.ListingID,
		buyerID:    input.BuyerID,
		qty:        input.Qty,
		offerCents: input.OfferCents,
		status:     enums.BidStatusPending,
		approvals:  make(map[uuid.UUID]bool, len(approvers)),
		card:       input.Card,
		dest:       input.Destination,
	}
	for _, id := range approvers {
		b.approvals[id] = false
	}

	k := key{StoreID: input.StoreID, ListingID: input.ListingID, BuyerID: input.BuyerID}
	if err := s.engine.place(k, b); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notifications.Event{
		Type:      notifications.EventBidPlaced,
		StoreID:   input.StoreID,
		ListingID: input.ListingID,
		UserID:    input.BuyerID,
		Message:   fmt.Sprintf("bid of %d placed on %s", input.OfferCents, listing.Name),
	})
	return NewBidDTO(b), nil
}

func (s *service) Approve(ctx context.Context, ref BidRef, approverID uuid.UUID) (*BidDTO, error) {
	b, err := s.engine.get(key(ref))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bid is already settled")
	}
	if b.status == enums.BidStatusCounterOffered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bid awaits the buyer's answer to a counter offer")
	}
	if _, ok := b.approvals[approverID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not an approver for this bid")
	}
	b.approvals[approverID] = true

	if !b.allApproved() {
		return NewBidDTO(b), nil
	}
	return s.settleLocked(ctx, b, b.offerCents)
}

func (s *service) Reject(ctx context.Context, ref BidRef, approverID uuid.UUID) (*BidDTO, error) {
	b, err := s.engine.get(key(ref))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bid is already settled")
	}
	if _, ok := b.approvals[approverID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not an approver for this bid")
	}
	b.status = enums.BidStatusRejected

	s.events.Publish(ctx, notifications.Event{
		Type:      notifications.EventBidRejected,
		StoreID:   b.storeID,
		ListingID: b.listingID,
		UserID:    b.buyerID,
		Message:   "your bid was rejected",
	})
	return NewBidDTO(b), nil
}

// CounterOffer records the store's counter price. The proposal is a store
// decision, not an approver vote, so no identity check applies here.
func (s *service) CounterOffer(ctx context.Context, ref BidRef, priceCents int64) (*BidDTO, error) {
	if priceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter offer must be positive")
	}

	b, err := s.engine.get(key(ref))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bid is already settled")
	}
	b.status = enums.BidStatusCounterOffered
	b.counterCents = priceCents

	s.events.Publish(ctx, notifications.Event{
		Type:      notifications.EventBidCountered,
		StoreID:   b.storeID,
		ListingID: b.listingID,
		UserID:    b.buyerID,
		Message:   fmt.Sprintf("counter offer of %d on your bid", priceCents),
	})
	return NewBidDTO(b), nil
}

func (s *service) AcceptCounter(ctx context.Context, ref BidRef) (*BidDTO, error) {
	b, err := s.engine.get(key(ref))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != enums.BidStatusCounterOffered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no counter offer to accept")
	}
	return s.settleLocked(ctx, b, b.counterCents)
}

func (s *service) DeclineCounter(ctx context.Context, ref BidRef) (*BidDTO, error) {
	b, err := s.engine.get(key(ref))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != enums.BidStatusCounterOffered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no counter offer to decline")
	}
	b.status = enums.BidStatusRejected
	return NewBidDTO(b), nil
}

// Status renders the negotiation for the buyer. A missing bid is an answer
// here, not an error.
func (s *service) Status(_ context.Context, ref BidRef) (string, error) {
	b, err := s.engine.get(key(ref))
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return "No Bid Found", nil
		}
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.status {
	case enums.BidStatusApproved:
		return "Approved", nil
	case enums.BidStatusRejected:
		return "Rejected", nil
	case enums.BidStatusCounterOffered:
		return fmt.Sprintf("Counter Offered: %d", b.counterCents), nil
	default:
		return "Pending Approval", nil
	}
}

// settleLocked charges and ships the negotiated line. The caller holds the
// bid mutex. A failed settlement leaves the bid non-terminal so the final
// approval (or the buyer's acceptance) can be retried.
func (s *service) settleLocked(ctx context.Context, b *bid, priceCents int64) (*BidDTO, error) {
	receipt, err := s.settler.Settle(ctx, purchases.SettlementInput{
		BuyerID:     b.buyerID,
		StoreID:     b.storeID,
		ListingID:   b.listingID,
		Qty:         b.qty,
		PriceCents:  priceCents,
		Kind:        enums.PurchaseKindBid,
		Card:        b.card,
		Destination: b.dest,
	})
	if err != nil {
		s.logg.Error(s.logg.WithStoreID(ctx, b.storeID.String()), "settling approved bid", err)
		return nil, err
	}
	b.status = enums.BidStatusApproved

	s.events.Publish(ctx, notifications.Event{
		Type:      notifications.EventBidApproved,
		StoreID:   b.storeID,
		ListingID: b.listingID,
		UserID:    b.buyerID,
		Message:   fmt.Sprintf("your bid was approved, purchase %s", receipt.PurchaseID),
	})
	return NewBidDTO(b), nil
}
