package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/api/responses"
	"github.com/openmarket/marketplace-backend/api/validators"
	cartsvc "github.com/openmarket/marketplace-backend/internal/cart"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

type cartItemRequest struct {
	StoreID   uuid.UUID `json:"store_id" validate:"required"`
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID := middleware.ActorIDFromContext(r.Context())
		if err := svc.AddItem(r.Context(), buyerID, payload.StoreID, payload.ListingID, payload.Qty); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "added"})
	}
}

type cartQtyRequest struct {
	StoreID   uuid.UUID `json:"store_id" validate:"required"`
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
	Qty       int       `json:"qty" validate:"min=0"`
}

func CartSetQty(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartQtyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID := middleware.ActorIDFromContext(r.Context())
		if err := svc.SetItemQty(r.Context(), buyerID, payload.StoreID, payload.ListingID, payload.Qty); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID := middleware.ActorIDFromContext(r.Context())
		if err := svc.RemoveItem(r.Context(), buyerID, storeID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func CartView(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.ActorIDFromContext(r.Context())
		view, err := svc.View(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
