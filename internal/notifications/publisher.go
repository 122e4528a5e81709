package notifications

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
)

// Event types published on the domain events topic.
const (
	EventOwnerAppointed    = "governance.owner_appointed"
	EventOwnerRemoved      = "governance.owner_removed"
	EventManagerAppointed  = "governance.manager_appointed"
	EventManagerRemoved    = "governance.manager_removed"
	EventStoreClosed       = "governance.store_closed"
	EventStoreReopened     = "governance.store_reopened"
	EventBidPlaced         = "trade.bid_placed"
	EventBidApproved       = "trade.bid_approved"
	EventBidRejected       = "trade.bid_rejected"
	EventBidCountered      = "trade.bid_countered"
	EventAuctionWon        = "trade.auction_won"
	EventAuctionClosed     = "trade.auction_closed"
	EventPurchaseCompleted = "trade.purchase_completed"
)

// Event is one domain notification addressed to a user.
type Event struct {
	Type       string    `json:"type"`
	StoreID    uuid.UUID `json:"store_id,omitempty"`
	ListingID  uuid.UUID `json:"listing_id,omitempty"`
	UserID     uuid.UUID `json:"user_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers domain events to interested users.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type sink interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

type publisher struct {
	sink sink
	logg *logger.Logger
}

// NewPublisher wires the event publisher on top of a message sink.
func NewPublisher(s sink, logg *logger.Logger) (Publisher, error) {
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &publisher{sink: s, logg: logg}, nil
}

// Publish delivers the event best-effort. A failed delivery is logged, never
// surfaced: notification fan-out must not fail the domain operation.
func (p *publisher) Publish(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		p.logg.Error(ctx, "encoding notification event", err)
		return
	}

	attrs := map[string]string{"event_type": evt.Type}
	if evt.StoreID != uuid.Nil {
		attrs["store_id"] = evt.StoreID.String()
	}

	if err := p.sink.Publish(ctx, data, attrs); err != nil {
		p.logg.Error(p.logg.WithField(ctx, "event_type", evt.Type), "publishing notification event", err)
	}
}

// Noop discards every event. Used where no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
