package policies

import (
	"sync"

	"github.com/google/uuid"
)

// storeRules holds one store's active rules behind its own lock.
type storeRules struct {
	mu        sync.RWMutex
	purchase  map[uuid.UUID]PurchaseRule
	discounts map[uuid.UUID]DiscountRule
}

func newStoreRules() *storeRules {
	return &storeRules{
		purchase:  map[uuid.UUID]PurchaseRule{},
		discounts: map[uuid.UUID]DiscountRule{},
	}
}

// Registry keeps per-store rule sets, created on demand.
type Registry struct {
	mu     sync.RWMutex
	stores map[uuid.UUID]*storeRules
}

// NewRegistry builds an empty policy registry.
func NewRegistry() *Registry {
	return &Registry{stores: map[uuid.UUID]*storeRules{}}
}

func (r *Registry) rulesFor(storeID uuid.UUID) *storeRules {
	r.mu.RLock()
	sr, ok := r.stores[storeID]
	r.mu.RUnlock()
	if ok {
		return sr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sr, ok := r.stores[storeID]; ok {
		return sr
	}
	sr = newStoreRules()
	r.stores[storeID] = sr
	return sr
}

// AddPurchaseRule registers the rule and returns its handle.
func (r *Registry) AddPurchaseRule(storeID uuid.UUID, rule PurchaseRule) uuid.UUID {
	sr := r.rulesFor(storeID)
	id := uuid.New()
	sr.mu.Lock()
	sr.purchase[id] = rule
	sr.mu.Unlock()
	return id
}

// AddDiscountRule registers the rule and returns its handle.
func (r *Registry) AddDiscountRule(storeID uuid.UUID, rule DiscountRule) uuid.UUID {
	sr := r.rulesFor(storeID)
	id := uuid.New()
	sr.mu.Lock()
	sr.discounts[id] = rule
	sr.mu.Unlock()
	return id
}

// RemovePurchaseRule drops the rule. Returns false when the handle is unknown.
func (r *Registry) RemovePurchaseRule(storeID, ruleID uuid.UUID) bool {
	sr := r.rulesFor(storeID)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if _, ok := sr.purchase[ruleID]; !ok {
		return false
	}
	delete(sr.purchase, ruleID)
	return true
}

// RemoveDiscountRule drops the rule. Returns false when the handle is unknown.
func (r *Registry) RemoveDiscountRule(storeID, ruleID uuid.UUID) bool {
	sr := r.rulesFor(storeID)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if _, ok := sr.discounts[ruleID]; !ok {
		return false
	}
	delete(sr.discounts, ruleID)
	return true
}

// CheckPurchase runs every purchase rule of the store against the basket.
func (r *Registry) CheckPurchase(basket Basket) error {
	sr := r.rulesFor(basket.StoreID)
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	for _, rule := range sr.purchase {
		if err := rule.Check(basket); err != nil {
			return err
		}
	}
	return nil
}

// DiscountCents returns the best single discount across the store's rules.
func (r *Registry) DiscountCents(basket Basket) int64 {
	sr := r.rulesFor(basket.StoreID)
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	var best int64
	for _, rule := range sr.discounts {
		if d := rule.DiscountCents(basket); d > best {
			best = d
		}
	}
	return best
}

// Describe lists the store's active rules for display.
func (r *Registry) Describe(storeID uuid.UUID) (purchase map[uuid.UUID]string, discounts map[uuid.UUID]string) {
	sr := r.rulesFor(storeID)
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	purchase = make(map[uuid.UUID]string, len(sr.purchase))
	for id, rule := range sr.purchase {
		purchase[id] = rule.Describe()
	}
	discounts = make(map[uuid.UUID]string, len(sr.discounts))
	for id, rule := range sr.discounts {
		discounts[id] = rule.Describe()
	}
	return purchase, discounts
}
