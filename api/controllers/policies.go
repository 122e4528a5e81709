package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/api/responses"
	"github.com/openmarket/marketplace-backend/api/validators"
	"github.com/openmarket/marketplace-backend/internal/policies"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

type addRuleRequest struct {
	Kind      string    `json:"kind" validate:"required"`
	ListingID uuid.UUID `json:"listing_id"`
	Category  string    `json:"category"`
	Qty       int       `json:"qty"`
	Percent   string    `json:"percent"`
}

func PolicyAdd(svc policies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addRuleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		ruleID, err := svc.AddRule(r.Context(), actorID, storeID, policies.RuleInput{
			Kind:      payload.Kind,
			ListingID: payload.ListingID,
			Category:  payload.Category,
			Qty:       payload.Qty,
			Percent:   payload.Percent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]uuid.UUID{"rule_id": ruleID})
	}
}

func PolicyRemove(svc policies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := pathUUID(r, "ruleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		if err := svc.RemoveRule(r.Context(), actorID, storeID, ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func PolicyList(svc policies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rules, err := svc.ListRules(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}
