package bids

import (
	"sync"

	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// key identifies one buyer's negotiation on one listing. A buyer holds at
// most one live bid per listing; a terminal bid frees the slot.
type key struct {
	StoreID   uuid.UUID
	ListingID uuid.UUID
	BuyerID   uuid.UUID
}

// bid is the negotiation state. The approver set is snapshotted when the bid
// is placed and never refreshed, so staff changes mid-negotiation do not
// grow or shrink the quorum.
type bid struct {
	mu sync.Mutex

	id         uuid.UUID
	storeID    uuid.UUID
	listingID  uuid.UUID
	buyerID    uuid.UUID
	qty        int
	offerCents int64

	status       enums.BidStatus
	counterCents int64
	approvals    map[uuid.UUID]bool

	card purchases.CardDetails
	dest purchases.Destination
}

func (b *bid) approverIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.approvals))
	for id := range b.approvals {
		ids = append(ids, id)
	}
	return ids
}

func (b *bid) allApproved() bool {
	for _, approved := range b.approvals {
		if !approved {
			return false
		}
	}
	return true
}

// Engine holds the live negotiations. Each bid carries its own mutex so
// negotiations on different listings never contend.
type Engine struct {
	mu   sync.RWMutex
	bids map[key]*bid
}

func NewEngine() *Engine {
	return &Engine{bids: map[key]*bid{}}
}

func (e *Engine) get(k key) (*bid, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bids[k]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no bid found")
	}
	return b, nil
}

// place registers a new negotiation. A non-terminal bid already on the slot
// blocks a new one.
func (e *Engine) place(k key, b *bid) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.bids[k]; ok {
		existing.mu.Lock()
		terminal := existing.status.IsTerminal()
		existing.mu.Unlock()
		if !terminal {
			return pkgerrors.New(pkgerrors.CodeConflict, "an open bid already exists for this listing")
		}
	}
	e.bids[k] = b
	return nil
}
