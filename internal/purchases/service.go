package purchases

import (
	"context"
	"fmt"
	"strings"

	"github.com/openmarket/marketplace-backend/internal/cart"
	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/internal/policies"
	"github.com/openmarket/marketplace-backend/pkg/db"
	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/openmarket/marketplace-backend/pkg/payment"
	"github.com/openmarket/marketplace-backend/pkg/shipping"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Service runs checkouts end to end: policy checks, stock reservation,
// charge, shipment, and the purchase record. Every external step that fails
// unwinds the steps before it.
type Service interface {
	Checkout(ctx context.Context, buyerID uuid.UUID, input CheckoutInput) (*ReceiptDTO, error)
	Settle(ctx context.Context, input SettlementInput) (*ReceiptDTO, error)
	BuyerHistory(ctx context.Context, buyerID uuid.UUID) ([]ReceiptDTO, error)
	StoreHistory(ctx context.Context, storeID uuid.UUID) ([]ReceiptDTO, error)
}

// CardDetails carries the buyer's payment instrument.
type CardDetails struct {
	Number string
	Month  string
	Year   string
	Holder string
	CCV    string
}

// Destination carries where and to whom a purchase ships.
type Destination struct {
	Name    string
	Address string
	City    string
	Country string
	Zip     string
	Contact string
}

// CheckoutInput is a regular cart checkout.
type CheckoutInput struct {
	Card        CardDetails
	Destination Destination
}

// SettlementInput settles a single already-negotiated line (an approved bid
// or a won auction) at an agreed price.
type SettlementInput struct {
	BuyerID     uuid.UUID
	StoreID     uuid.UUID
	ListingID   uuid.UUID
	Qty         int
	PriceCents  int64
	Kind        enums.PurchaseKind
	Card        CardDetails
	Destination Destination
}

type stockKeeper interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
}

type policyEngine interface {
	CheckPurchase(basket policies.Basket) error
	DiscountCents(basket policies.Basket) int64
}

type storeGate interface {
	EnsureStoreOpen(ctx context.Context, storeID uuid.UUID) error
}

type paymentGateway interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (string, error)
	Cancel(ctx context.Context, paymentRef string) (bool, error)
}

type shippingGateway interface {
	Ship(ctx context.Context, req shipping.ShipmentRequest) (string, error)
	Cancel(ctx context.Context, trackingRef string) (bool, error)
}

type service struct {
	repo     Repository
	dbClient *db.Client
	carts    *cart.Registry
	stock    stockKeeper
	policies policyEngine
	gate     storeGate
	payments paymentGateway
	shipping shippingGateway
	events   notifications.Publisher
	logg     *logger.Logger
}

// NewService wires the purchase orchestrator.
func NewService(
	repo Repository,
	dbClient *db.Client,
	carts *cart.Registry,
	stock stockKeeper,
	policyEngine policyEngine,
	gate storeGate,
	payments paymentGateway,
	shippingGW shippingGateway,
	events notifications.Publisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart registry required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock keeper required")
	}
	if policyEngine == nil {
		return nil, fmt.Errorf("policy engine required")
	}
	if gate == nil {
		return nil, fmt.Errorf("store gate required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if shippingGW == nil {
		return nil, fmt.Errorf("shipping gateway required")
	}
	if events == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		carts:    carts,
		stock:    stock,
		policies: policyEngine,
		gate:     gate,
		payments: payments,
		shipping: shippingGW,
		events:   events,
		logg:     logg,
	}, nil
}

// pricedLine is a cart line joined with its listing at checkout time.
type pricedLine struct {
	item    cart.Item
	listing *models.Listing
}

func (s *service) Checkout(ctx context.Context, buyerID uuid.UUID, input CheckoutInput) (*ReceiptDTO, error) {
	if err := validateDestination(input.Destination); err != nil {
		return nil, err
	}

	buyerCart := s.carts.CartFor(buyerID)
	items := buyerCart.Items()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// Price every line against the live catalog.
	lines := make([]pricedLine, 0, len(items))
	baskets := map[uuid.UUID]*policies.Basket{}
	for _, item := range items {
		listing, err := s.stock.GetByID(ctx, item.ListingID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, pricedLine{item: item, listing: listing})

		basket, ok := baskets[item.StoreID]
		if !ok {
			basket = &policies.Basket{StoreID: item.StoreID}
			baskets[item.StoreID] = basket
		}
		basket.Lines = append(basket.Lines, policies.Line{
			ListingID:      item.ListingID,
			Category:       listing.Category,
			Qty:            item.Qty,
			UnitPriceCents: listing.UnitPriceCents,
		})
	}

	// Store gates and purchase policies before anything irreversible.
	var total int64
	for storeID, basket := range baskets {
		if err := s.gate.EnsureStoreOpen(ctx, storeID); err != nil {
			return nil, err
		}
		if err := s.policies.CheckPurchase(*basket); err != nil {
			return nil, err
		}
		total += basket.SubtotalCents() - s.policies.DiscountCents(*basket)
	}
	if total < 0 {
		total = 0
	}

	// Reserve stock line by line; a short shelf unwinds what was taken.
	reserved := []pricedLine{}
	for _, line := range lines {
		if err := s.stock.DecrementStock(ctx, line.item.ListingID, line.item.Qty); err != nil {
			s.restore(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, line)
	}

	receipt, err := s.settleReserved(ctx, buyerID, enums.PurchaseKindRegular, total, reserved, input.Card, input.Destination)
	if err != nil {
		return nil, err
	}

	buyerCart.ClearAll()
	s.events.Publish(ctx, notifications.Event{
		Type:    notifications.EventPurchaseCompleted,
		UserID:  buyerID,
		Message: fmt.Sprintf("purchase %s completed", receipt.PurchaseID),
	})
	return receipt, nil
}

func (s *service) Settle(ctx context.Context, input SettlementInput) (*ReceiptDTO, error) {
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if err := validateDestination(input.Destination); err != nil {
		return nil, err
	}
	if err := s.gate.EnsureStoreOpen(ctx, input.StoreID); err != nil {
		return nil, err
	}

	listing, err := s.stock.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if err := s.stock.DecrementStock(ctx, input.ListingID, input.Qty); err != nil {
		return nil, err
	}

	line := pricedLine{
		item:    cart.Item{ListingID: input.ListingID, StoreID: input.StoreID, Qty: input.Qty},
		listing: listing,
	}
	// The negotiated price replaces the listing price for the whole line.
	return s.settleReserved(ctx, input.BuyerID, input.Kind, input.PriceCents, []pricedLine{line}, input.Card, input.Destination)
}

// settleReserved runs charge -> ship -> persist over already-reserved stock,
// compensating in reverse order on failure.
func (s *service) settleReserved(
	ctx context.Context,
	buyerID uuid.UUID,
	kind enums.PurchaseKind,
	totalCents int64,
	reserved []pricedLine,
	card CardDetails,
	dest Destination,
) (*ReceiptDTO, error) {
	paymentRef, err := s.payments.Charge(ctx, payment.ChargeRequest{
		AmountCents: totalCents,
		CardNumber:  card.Number,
		Month:       card.Month,
		Year:        card.Year,
		Holder:      card.Holder,
		CCV:         card.CCV,
	})
	if err != nil {
		s.restore(ctx, reserved)
		return nil, err
	}

	trackingRef, err := s.shipping.Ship(ctx, shipping.ShipmentRequest{
		Name:    dest.Name,
		Address: dest.Address,
		City:    dest.City,
		Country: dest.Country,
		Zip:     dest.Zip,
	})
	if err != nil {
		s.cancelPayment(ctx, paymentRef)
		s.restore(ctx, reserved)
		return nil, err
	}

	record := &models.PurchaseRecord{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		Kind:            kind,
		TotalCents:      totalCents,
		ShippingAddress: dest.Address,
		ContactInfo:     dest.Contact,
		PaymentRef:      paymentRef,
		TrackingRef:     trackingRef,
	}
	for _, line := range reserved {
		record.Items = append(record.Items, models.PurchaseItem{
			ID:             uuid.New(),
			PurchaseID:     record.ID,
			ListingID:      line.item.ListingID,
			StoreID:        line.item.StoreID,
			Name:           line.listing.Name,
			Qty:            line.item.Qty,
			UnitPriceCents: line.listing.UnitPriceCents,
		})
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, record)
		return err
	})
	if err != nil {
		s.cancelShipment(ctx, trackingRef)
		s.cancelPayment(ctx, paymentRef)
		s.restore(ctx, reserved)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist purchase record")
	}

	ctx = s.logg.WithField(ctx, "purchase_id", record.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "total_cents", totalCents), "purchase settled")

	return NewReceiptDTO(record), nil
}

func (s *service) restore(ctx context.Context, reserved []pricedLine) {
	var errs error
	for _, line := range reserved {
		if err := s.stock.RestoreStock(ctx, line.item.ListingID, line.item.Qty); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		s.logg.Error(ctx, "restoring reserved stock", errs)
	}
}

func (s *service) cancelPayment(ctx context.Context, paymentRef string) {
	ok, err := s.payments.Cancel(ctx, paymentRef)
	if err != nil {
		s.logg.Error(ctx, "cancelling payment", err)
		return
	}
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "payment_ref", paymentRef), "payment cancellation declined")
	}
}

func (s *service) cancelShipment(ctx context.Context, trackingRef string) {
	ok, err := s.shipping.Cancel(ctx, trackingRef)
	if err != nil {
		s.logg.Error(ctx, "cancelling shipment", err)
		return
	}
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "tracking_ref", trackingRef), "shipment cancellation declined")
	}
}

func (s *service) BuyerHistory(ctx context.Context, buyerID uuid.UUID) ([]ReceiptDTO, error) {
	records, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer purchases")
	}
	return toReceipts(records), nil
}

func (s *service) StoreHistory(ctx context.Context, storeID uuid.UUID) ([]ReceiptDTO, error) {
	records, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store purchases")
	}
	return toReceipts(records), nil
}

func validateDestination(dest Destination) error {
	if strings.TrimSpace(dest.Name) == "" || strings.TrimSpace(dest.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient name and address are required")
	}
	return nil
}
