package cart

import (
	"sort"
	"sync"

	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// Item is one listing held in a buyer's cart.
type Item struct {
	ListingID uuid.UUID
	StoreID   uuid.UUID
	Qty       int
}

// Cart holds a single buyer's pending items grouped per store. All mutations
// go through the cart's own lock; carts never share state.
type Cart struct {
	mu   sync.Mutex
	bags map[uuid.UUID]map[uuid.UUID]int // storeID -> listingID -> qty
}

func newCart() *Cart {
	return &Cart{bags: map[uuid.UUID]map[uuid.UUID]int{}}
}

// Add puts qty units of the listing into the store's bag, merging with any
// existing line.
func (c *Cart) Add(storeID, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bag, ok := c.bags[storeID]
	if !ok {
		bag = map[uuid.UUID]int{}
		c.bags[storeID] = bag
	}
	bag[listingID] += qty
	return nil
}

// SetQty replaces the line quantity. Zero removes the line.
func (c *Cart) SetQty(storeID, listingID uuid.UUID, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bag, ok := c.bags[storeID]
	if !ok || bag[listingID] == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	if qty == 0 {
		delete(bag, listingID)
		if len(bag) == 0 {
			delete(c.bags, storeID)
		}
		return nil
	}
	bag[listingID] = qty
	return nil
}

// Remove drops the line entirely.
func (c *Cart) Remove(storeID, listingID uuid.UUID) error {
	return c.SetQty(storeID, listingID, 0)
}

// Items returns a stable snapshot of every line in the cart.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := []Item{}
	for storeID, bag := range c.bags {
		for listingID, qty := range bag {
			items = append(items, Item{ListingID: listingID, StoreID: storeID, Qty: qty})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].StoreID != items[j].StoreID {
			return items[i].StoreID.String() < items[j].StoreID.String()
		}
		return items[i].ListingID.String() < items[j].ListingID.String()
	})
	return items
}

// Empty reports whether the cart holds no lines.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bags) == 0
}

// ClearAll wipes the cart after a completed checkout.
func (c *Cart) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bags = map[uuid.UUID]map[uuid.UUID]int{}
}

// Registry hands out carts per buyer, creating them on demand.
type Registry struct {
	mu    sync.RWMutex
	carts map[uuid.UUID]*Cart
}

// NewRegistry builds an empty cart registry.
func NewRegistry() *Registry {
	return &Registry{carts: map[uuid.UUID]*Cart{}}
}

// CartFor returns the buyer's cart, creating an empty one if needed.
func (r *Registry) CartFor(buyerID uuid.UUID) *Cart {
	r.mu.RLock()
	c, ok := r.carts[buyerID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[buyerID]; ok {
		return c
	}
	c = newCart()
	r.carts[buyerID] = c
	return c
}
