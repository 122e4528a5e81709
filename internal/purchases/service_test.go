package purchases

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/openmarket/marketplace-backend/internal/cart"
	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/internal/policies"
	"github.com/openmarket/marketplace-backend/pkg/config"
	"github.com/openmarket/marketplace-backend/pkg/db"
	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/openmarket/marketplace-backend/pkg/payment"
	"github.com/openmarket/marketplace-backend/pkg/shipping"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

type stubStock struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*models.Listing
}

func newStubStock(listings ...*models.Listing) *stubStock {
	s := &stubStock{listings: map[uuid.UUID]*models.Listing{}}
	for _, l := range listings {
		s.listings[l.ID] = l
	}
	return s
}

func (s *stubStock) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listings[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
}

func (s *stubStock) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if l.Quantity < qty {
		return pkgerrors.New(pkgerrors.CodeExhausted, "insufficient stock")
	}
	l.Quantity -= qty
	return nil
}

func (s *stubStock) RestoreStock(_ context.Context, id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	l.Quantity += qty
	return nil
}

func (s *stubStock) qtyOf(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listings[id].Quantity
}

type stubPayments struct {
	declined  bool
	charges   []int64
	cancelled []string
}

func (p *stubPayments) Charge(_ context.Context, req payment.ChargeRequest) (string, error) {
	if p.declined {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment declined by processor")
	}
	p.charges = append(p.charges, req.AmountCents)
	return fmt.Sprintf("pay-%d", len(p.charges)), nil
}

func (p *stubPayments) Cancel(_ context.Context, ref string) (bool, error) {
	p.cancelled = append(p.cancelled, ref)
	return true, nil
}

type stubShipping struct {
	refused   bool
	shipments int
	cancelled []string
}

func (c *stubShipping) Ship(_ context.Context, _ shipping.ShipmentRequest) (string, error) {
	if c.refused {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shipment refused by carrier")
	}
	c.shipments++
	return fmt.Sprintf("track-%d", c.shipments), nil
}

func (c *stubShipping) Cancel(_ context.Context, ref string) (bool, error) {
	c.cancelled = append(c.cancelled, ref)
	return true, nil
}

type openStores struct{ closed map[uuid.UUID]bool }

func (g openStores) EnsureStoreOpen(_ context.Context, storeID uuid.UUID) error {
	if g.closed[storeID] {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is closed")
	}
	return nil
}

type fixture struct {
	svc      Service
	carts    *cart.Registry
	stock    *stubStock
	policies *policies.Registry
	payments *stubPayments
	shipping *stubShipping
	repo     Repository
}

func newFixture(t *testing.T, gate storeGate, listings ...*models.Listing) *fixture {
	t.Helper()

	dsn := "file:purchases_" + uuid.NewString() + "?mode=memory&cache=shared"
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	for _, schema := range []string{
		`CREATE TABLE IF NOT EXISTS purchase_records (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  shipping_address TEXT NOT NULL,
  contact_info TEXT NOT NULL,
  payment_ref TEXT NOT NULL,
  tracking_ref TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchase_items (
  id TEXT PRIMARY KEY,
  purchase_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL
);`,
	} {
		if err := client.DB().Exec(schema).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	f := &fixture{
		carts:    cart.NewRegistry(),
		stock:    newStubStock(listings...),
		policies: policies.NewRegistry(),
		payments: &stubPayments{},
		shipping: &stubShipping{},
		repo:     NewRepository(client.DB()),
	}
	svc, err := NewService(
		f.repo,
		client,
		f.carts,
		f.stock,
		f.policies,
		gate,
		f.payments,
		f.shipping,
		notifications.Noop{},
		logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{
		Card:        CardDetails{Number: "4111111111111111", Month: "12", Year: "2027", Holder: "Dana Levi", CCV: "123"},
		Destination: Destination{Name: "Dana Levi", Address: "12 Herzl St", City: "Tel Aviv", Country: "IL", Zip: "6688210", Contact: "dana@example.com"},
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", Category: "furniture", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{}, listing)
	ctx := context.Background()
	buyerID := uuid.New()

	if err := f.carts.CartFor(buyerID).Add(storeID, listing.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	receipt, err := f.svc.Checkout(ctx, buyerID, checkoutInput())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if receipt.TotalCents != 20_000 {
		t.Fatalf("total = %d, want 20000", receipt.TotalCents)
	}
	if receipt.PaymentRef == "" || receipt.TrackingRef == "" {
		t.Fatalf("missing refs: %+v", receipt)
	}
	if got := f.stock.qtyOf(listing.ID); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	if !f.carts.CartFor(buyerID).Empty() {
		t.Fatal("cart must be cleared after checkout")
	}

	history, err := f.svc.BuyerHistory(ctx, buyerID)
	if err != nil {
		t.Fatalf("buyer history: %v", err)
	}
	if len(history) != 1 || len(history[0].Items) != 1 {
		t.Fatalf("unexpected history: %+v", history)
	}

	storeHistory, err := f.svc.StoreHistory(ctx, storeID)
	if err != nil {
		t.Fatalf("store history: %v", err)
	}
	if len(storeHistory) != 1 {
		t.Fatalf("unexpected store history: %+v", storeHistory)
	}
}

func TestCheckoutAppliesDiscount(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", Category: "furniture", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{}, listing)
	f.policies.AddDiscountRule(storeID, policies.PercentOffStore{Percent: mustDecimal(t, "10")})

	buyerID := uuid.New()
	if err := f.carts.CartFor(buyerID).Add(storeID, listing.ID, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	receipt, err := f.svc.Checkout(context.Background(), buyerID, checkoutInput())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if receipt.TotalCents != 9_000 {
		t.Fatalf("total = %d, want 9000 after discount", receipt.TotalCents)
	}
	if f.payments.charges[0] != 9_000 {
		t.Fatalf("charged = %d, want 9000", f.payments.charges[0])
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openStores{})
	_, err := f.svc.Checkout(context.Background(), uuid.New(), checkoutInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutClosedStore(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{closed: map[uuid.UUID]bool{storeID: true}}, listing)

	buyerID := uuid.New()
	if err := f.carts.CartFor(buyerID).Add(storeID, listing.ID, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := f.svc.Checkout(context.Background(), buyerID, checkoutInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := f.stock.qtyOf(listing.ID); got != 5 {
		t.Fatalf("stock touched for closed store: %d", got)
	}
}

func TestCheckoutPolicyViolation(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{}, listing)
	f.policies.AddPurchaseRule(storeID, policies.MaxQtyRule{ListingID: listing.ID, Max: 1})

	buyerID := uuid.New()
	if err := f.carts.CartFor(buyerID).Add(storeID, listing.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := f.svc.Checkout(context.Background(), buyerID, checkoutInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(f.payments.charges) != 0 {
		t.Fatal("no charge may happen on policy violation")
	}
}

func TestCheckoutInsufficientStockUnwindsReservations(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	plenty := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	scarce := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Walnut Desk", UnitPriceCents: 45_000, Quantity: 1}
	f := newFixture(t, openStores{}, plenty, scarce)

	buyerID := uuid.New()
	buyerCart := f.carts.CartFor(buyerID)
	if err := buyerCart.Add(storeID, plenty.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if err := buyerCart.Add(storeID, scarce.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := f.svc.Checkout(context.Background(), buyerID, checkoutInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
	if got := f.stock.qtyOf(plenty.ID); got != 5 {
		t.Fatalf("reserved stock not restored: %d", got)
	}
	if len(f.payments.charges) != 0 {
		t.Fatal("no charge may happen when reservation fails")
	}
	if buyerCart.Empty() {
		t.Fatal("cart must survive a failed checkout")
	}
}

func TestCheckoutPaymentDeclinedRestoresStock(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{}, listing)
	f.payments.declined = true

	buyerID := uuid.New()
	if err := f.carts.CartFor(buyerID).Add(storeID, listing.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := f.svc.Checkout(context.Background(), buyerID, checkoutInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if got := f.stock.qtyOf(listing.ID); got != 5 {
		t.Fatalf("stock not restored after decline: %d", got)
	}
}

func TestCheckoutShipmentRefusedCancelsPayment(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{}, listing)
	f.shipping.refused = true

	buyerID := uuid.New()
	if err := f.carts.CartFor(buyerID).Add(storeID, listing.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_, err := f.svc.Checkout(context.Background(), buyerID, checkoutInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(f.payments.cancelled) != 1 {
		t.Fatalf("payment must be cancelled, got %v", f.payments.cancelled)
	}
	if got := f.stock.qtyOf(listing.ID); got != 5 {
		t.Fatalf("stock not restored after refusal: %d", got)
	}
}

func TestSettleNegotiatedPrice(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), StoreID: storeID, Name: "Oak Chair", UnitPriceCents: 10_000, Quantity: 5}
	f := newFixture(t, openStores{}, listing)

	buyerID := uuid.New()
	receipt, err := f.svc.Settle(context.Background(), SettlementInput{
		BuyerID:     buyerID,
		StoreID:     storeID,
		ListingID:   listing.ID,
		Qty:         1,
		PriceCents:  7_500,
		Kind:        enums.PurchaseKindBid,
		Card:        checkoutInput().Card,
		Destination: checkoutInput().Destination,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if receipt.TotalCents != 7_500 {
		t.Fatalf("total = %d, want negotiated 7500", receipt.TotalCents)
	}
	if receipt.Kind != enums.PurchaseKindBid.String() {
		t.Fatalf("kind = %q", receipt.Kind)
	}
	if got := f.stock.qtyOf(listing.ID); got != 4 {
		t.Fatalf("stock = %d, want 4", got)
	}
}
