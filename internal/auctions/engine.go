package auctions

import (
	"sync"
	"time"

	"github.com/openmarket/marketplace-backend/internal/purchases"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// offer is the best standing offer, carried with everything needed to settle
// it unattended when the auction closes.
type offer struct {
	BidderID    uuid.UUID
	AmountCents int64
	Card        purchases.CardDetails
	Dest        purchases.Destination
}

// auction is one timed sale. closed flips exactly once, under the mutex, so
// a manual close and the scheduled close cannot both settle the winner.
type auction struct {
	mu sync.Mutex

	id            uuid.UUID
	storeID       uuid.UUID
	listingID     uuid.UUID
	qty           int
	startingCents int64
	endTime       time.Time

	maxOffer    *offer
	closed      bool
	cancelTimer func()
}

// Engine indexes live auctions. A closed auction is removed, so looking it
// up afterwards reports not found.
type Engine struct {
	mu        sync.RWMutex
	auctions  map[uuid.UUID]*auction
	byListing map[uuid.UUID]uuid.UUID
}

func NewEngine() *Engine {
	return &Engine{
		auctions:  map[uuid.UUID]*auction{},
		byListing: map[uuid.UUID]uuid.UUID{},
	}
}

func (e *Engine) add(a *auction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byListing[a.listingID]; ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "listing already has a live auction")
	}
	e.auctions[a.id] = a
	e.byListing[a.listingID] = a.id
	return nil
}

func (e *Engine) get(id uuid.UUID) (*auction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.auctions[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	return a, nil
}

// remove takes the auction out of the index. Exactly one caller wins; the
// loser sees not found.
func (e *Engine) remove(id uuid.UUID) (*auction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.auctions[id]
	if !ok {
		return nil, false
	}
	delete(e.auctions, id)
	delete(e.byListing, a.listingID)
	return a, true
}

// expired snapshots the auctions whose end time has passed.
func (e *Engine) expired(now time.Time) []uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var due []uuid.UUID
	for id, a := range e.auctions {
		if !a.endTime.After(now) {
			due = append(due, id)
		}
	}
	return due
}
