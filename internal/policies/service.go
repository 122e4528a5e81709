package policies

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rule kinds accepted by AddRule.
const (
	KindMinQty          = "min_qty"
	KindMaxQty          = "max_qty"
	KindCategoryMax     = "category_max"
	KindPercentListing  = "percent_listing"
	KindPercentCategory = "percent_category"
	KindPercentStore    = "percent_store"
)

// Service manages store purchase and discount policies.
type Service interface {
	AddRule(ctx context.Context, actorID, storeID uuid.UUID, input RuleInput) (uuid.UUID, error)
	RemoveRule(ctx context.Context, actorID, storeID, ruleID uuid.UUID) error
	ListRules(ctx context.Context, storeID uuid.UUID) (*RulesDTO, error)
}

// RuleInput is the untyped payload describing one rule to add.
type RuleInput struct {
	Kind      string
	ListingID uuid.UUID
	Category  string
	Qty       int
	Percent   string
}

// RulesDTO lists a store's active rules.
type RulesDTO struct {
	Purchase  map[uuid.UUID]string `json:"purchase"`
	Discounts map[uuid.UUID]string `json:"discounts"`
}

// policyGate answers whether the actor may manage a store's policies.
type policyGate interface {
	EnsureCanEditPolicies(ctx context.Context, storeID, actorID uuid.UUID) error
}

type service struct {
	registry *Registry
	gate     policyGate
}

// NewService wires the policy service.
func NewService(registry *Registry, gate policyGate) (Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("policy registry required")
	}
	if gate == nil {
		return nil, fmt.Errorf("policy gate required")
	}
	return &service{registry: registry, gate: gate}, nil
}

func (s *service) AddRule(ctx context.Context, actorID, storeID uuid.UUID, input RuleInput) (uuid.UUID, error) {
	if err := s.gate.EnsureCanEditPolicies(ctx, storeID, actorID); err != nil {
		return uuid.Nil, err
	}

	switch strings.ToLower(strings.TrimSpace(input.Kind)) {
	case KindMinQty:
		if input.ListingID == uuid.Nil || input.Qty <= 0 {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "min_qty requires a listing id and positive qty")
		}
		return s.registry.AddPurchaseRule(storeID, MinQtyRule{ListingID: input.ListingID, Min: input.Qty}), nil

	case KindMaxQty:
		if input.ListingID == uuid.Nil || input.Qty <= 0 {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "max_qty requires a listing id and positive qty")
		}
		return s.registry.AddPurchaseRule(storeID, MaxQtyRule{ListingID: input.ListingID, Max: input.Qty}), nil

	case KindCategoryMax:
		if strings.TrimSpace(input.Category) == "" || input.Qty <= 0 {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "category_max requires a category and positive qty")
		}
		return s.registry.AddPurchaseRule(storeID, CategoryMaxRule{Category: input.Category, Max: input.Qty}), nil

	case KindPercentListing:
		pct, err := parsePercent(input.Percent)
		if err != nil {
			return uuid.Nil, err
		}
		if input.ListingID == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "percent_listing requires a listing id")
		}
		return s.registry.AddDiscountRule(storeID, PercentOffListing{ListingID: input.ListingID, Percent: pct}), nil

	case KindPercentCategory:
		pct, err := parsePercent(input.Percent)
		if err != nil {
			return uuid.Nil, err
		}
		if strings.TrimSpace(input.Category) == "" {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "percent_category requires a category")
		}
		return s.registry.AddDiscountRule(storeID, PercentOffCategory{Category: input.Category, Percent: pct}), nil

	case KindPercentStore:
		pct, err := parsePercent(input.Percent)
		if err != nil {
			return uuid.Nil, err
		}
		return s.registry.AddDiscountRule(storeID, PercentOffStore{Percent: pct}), nil

	default:
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown rule kind %q", input.Kind)
	}
}

func (s *service) RemoveRule(ctx context.Context, actorID, storeID, ruleID uuid.UUID) error {
	if err := s.gate.EnsureCanEditPolicies(ctx, storeID, actorID); err != nil {
		return err
	}
	if s.registry.RemovePurchaseRule(storeID, ruleID) {
		return nil
	}
	if s.registry.RemoveDiscountRule(storeID, ruleID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
}

func (s *service) ListRules(_ context.Context, storeID uuid.UUID) (*RulesDTO, error) {
	purchase, discounts := s.registry.Describe(storeID)
	return &RulesDTO{Purchase: purchase, Discounts: discounts}, nil
}

func parsePercent(raw string) (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percent")
	}
	if pct.Sign() <= 0 || pct.GreaterThan(hundred) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "percent must be in (0, 100]")
	}
	return pct, nil
}
