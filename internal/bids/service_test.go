package bids

import (
	"context"
	"sync"
	"testing"

	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubStores struct {
	approvers map[uuid.UUID][]uuid.UUID
	closed    map[uuid.UUID]bool
}

func (s *stubStores) EnsureStoreOpen(_ context.Context, storeID uuid.UUID) error {
	if s.closed[storeID] {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is closed")
	}
	return nil
}

func (s *stubStores) BidApprovers(_ context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	return s.approvers[storeID], nil
}

type stubListings struct {
	byID map[uuid.UUID]*models.Listing
}

func (s *stubListings) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	if l, ok := s.byID[id]; ok {
		return l, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
}

type stubSettler struct {
	mu     sync.Mutex
	fail   bool
	inputs []purchases.SettlementInput
}

func (s *stubSettler) Settle(_ context.Context, input purchases.SettlementInput) (*purchases.ReceiptDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment declined by processor")
	}
	s.inputs = append(s.inputs, input)
	return &purchases.ReceiptDTO{PurchaseID: uuid.New(), Kind: input.Kind.String(), TotalCents: input.PriceCents}, nil
}

func (s *stubSettler) settled() []purchases.SettlementInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]purchases.SettlementInput(nil), s.inputs...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(eventType string) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notifications.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type bidFixture struct {
	svc       Service
	storeID   uuid.UUID
	listing   *models.Listing
	approvers []uuid.UUID
	settler   *stubSettler
	published *recordingPublisher
}

func newBidFixture(t *testing.T, approverCount int) *bidFixture {
	t.Helper()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	approvers := make([]uuid.UUID, approverCount)
	for i := range approvers {
		approvers[i] = uuid.New()
	}

	f := &bidFixture{
		storeID:   storeID,
		listing:   listing,
		approvers: approvers,
		settler:   &stubSettler{},
		published: &recordingPublisher{},
	}
	svc, err := NewService(
		NewEngine(),
		&stubStores{approvers: map[uuid.UUID][]uuid.UUID{storeID: approvers}},
		&stubListings{byID: map[uuid.UUID]*models.Listing{listing.ID: listing}},
		f.settler,
		f.published,
		logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *bidFixture) place(t *testing.T, buyerID uuid.UUID, offerCents int64) BidRef {
	t.Helper()
	_, err := f.svc.PlaceBid(context.Background(), PlaceBidInput{
		BuyerID:    buyerID,
		StoreID:    f.storeID,
		ListingID:  f.listing.ID,
		Qty:        1,
		OfferCents: offerCents,
	})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	return BidRef{StoreID: f.storeID, ListingID: f.listing.ID, BuyerID: buyerID}
}

func TestBidQuorumSettlesOnce(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 3)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	for i, approverID := range f.approvers {
		dto, err := f.svc.Approve(ctx, ref, approverID)
		if err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
		last := i == len(f.approvers)-1
		if last && dto.Status != enums.BidStatusApproved.String() {
			t.Fatalf("final approval status = %q", dto.Status)
		}
		if !last && dto.Status != enums.BidStatusPending.String() {
			t.Fatalf("partial approval status = %q", dto.Status)
		}
	}

	settled := f.settler.settled()
	if len(settled) != 1 {
		t.Fatalf("settled %d times, want exactly once", len(settled))
	}
	if settled[0].PriceCents != 8_000 || settled[0].Kind != enums.PurchaseKindBid {
		t.Fatalf("unexpected settlement: %+v", settled[0])
	}
	if len(f.published.ofType(notifications.EventBidApproved)) != 1 {
		t.Fatal("expected one approval event")
	}
}

func TestBidApproveAfterSettlement(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	if _, err := f.svc.Approve(ctx, ref, f.approvers[0]); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := f.svc.Approve(ctx, ref, f.approvers[0])
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on settled bid, got %v", err)
	}
}

func TestBidRejectIsTerminal(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 2)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	if _, err := f.svc.Reject(ctx, ref, f.approvers[0]); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err := f.svc.Approve(ctx, ref, f.approvers[1])
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict after rejection, got %v", err)
	}
	if len(f.settler.settled()) != 0 {
		t.Fatal("rejected bid must never settle")
	}
	if len(f.published.ofType(notifications.EventBidRejected)) != 1 {
		t.Fatal("expected a rejection event")
	}
}

func TestBidOutsiderCannotDecide(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)
	outsider := uuid.New()

	if _, err := f.svc.Approve(ctx, ref, outsider); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, ref, outsider); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestBidCounterOfferFlow(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 2)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	dto, err := f.svc.CounterOffer(ctx, ref, 9_000)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if dto.Status != enums.BidStatusCounterOffered.String() {
		t.Fatalf("status = %q", dto.Status)
	}

	status, err := f.svc.Status(ctx, ref)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != "Counter Offered: 9000" {
		t.Fatalf("status projection = %q", status)
	}

	// Approval is frozen while the ball is in the buyer's court.
	if _, err := f.svc.Approve(ctx, ref, f.approvers[1]); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	dto, err = f.svc.AcceptCounter(ctx, ref)
	if err != nil {
		t.Fatalf("accept counter: %v", err)
	}
	if dto.Status != enums.BidStatusApproved.String() {
		t.Fatalf("status = %q", dto.Status)
	}

	settled := f.settler.settled()
	if len(settled) != 1 || settled[0].PriceCents != 9_000 {
		t.Fatalf("expected one settlement at countered price, got %+v", settled)
	}
}

func TestBidCounterOfferIsStoreDecision(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 3)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	// A partial approval does not block the store from countering, and the
	// counter carries no proposer identity at all.
	if _, err := f.svc.Approve(ctx, ref, f.approvers[0]); err != nil {
		t.Fatalf("approve: %v", err)
	}
	dto, err := f.svc.CounterOffer(ctx, ref, 9_500)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if dto.Status != enums.BidStatusCounterOffered.String() {
		t.Fatalf("status = %q", dto.Status)
	}

	if _, err := f.svc.AcceptCounter(ctx, ref); err != nil {
		t.Fatalf("accept counter: %v", err)
	}
	settled := f.settler.settled()
	if len(settled) != 1 || settled[0].PriceCents != 9_500 {
		t.Fatalf("expected one settlement at countered price, got %+v", settled)
	}
}

func TestBidDeclineCounter(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	if _, err := f.svc.CounterOffer(ctx, ref, 9_000); err != nil {
		t.Fatalf("counter: %v", err)
	}
	dto, err := f.svc.DeclineCounter(ctx, ref)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if dto.Status != enums.BidStatusRejected.String() {
		t.Fatalf("status = %q", dto.Status)
	}
	if len(f.settler.settled()) != 0 {
		t.Fatal("declined counter must not settle")
	}
}

func TestBidSettlementFailureIsRetryable(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	ctx := context.Background()
	ref := f.place(t, uuid.New(), 8_000)

	f.settler.fail = true
	if _, err := f.svc.Approve(ctx, ref, f.approvers[0]); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	f.settler.fail = false
	dto, err := f.svc.Approve(ctx, ref, f.approvers[0])
	if err != nil {
		t.Fatalf("retried approve: %v", err)
	}
	if dto.Status != enums.BidStatusApproved.String() {
		t.Fatalf("status = %q", dto.Status)
	}
	if len(f.settler.settled()) != 1 {
		t.Fatalf("settled %d times, want once", len(f.settler.settled()))
	}
}

func TestBidSlotBlocksSecondLiveBid(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	buyerID := uuid.New()
	f.place(t, buyerID, 8_000)

	_, err := f.svc.PlaceBid(context.Background(), PlaceBidInput{
		BuyerID:    buyerID,
		StoreID:    f.storeID,
		ListingID:  f.listing.ID,
		Qty:        1,
		OfferCents: 8_500,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestBidStatusNoBid(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	status, err := f.svc.Status(context.Background(), BidRef{StoreID: f.storeID, ListingID: f.listing.ID, BuyerID: uuid.New()})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != "No Bid Found" {
		t.Fatalf("status = %q", status)
	}
}

func TestBidValidation(t *testing.T) {
	t.Parallel()

	f := newBidFixture(t, 1)
	_, err := f.svc.PlaceBid(context.Background(), PlaceBidInput{
		BuyerID:    uuid.New(),
		StoreID:    f.storeID,
		ListingID:  f.listing.ID,
		Qty:        0,
		OfferCents: 8_000,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
