package controllers

import (
	"net/http"

	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/api/responses"
	"github.com/openmarket/marketplace-backend/api/validators"
	"github.com/openmarket/marketplace-backend/internal/listings"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

const maxListingNameLen = 200

type createListingRequest struct {
	Name           string   `json:"name" validate:"required,min=1"`
	Category       string   `json:"category"`
	Description    *string  `json:"description"`
	Tags           []string `json:"tags"`
	UnitPriceCents int64    `json:"unit_price_cents" validate:"required,min=1"`
	Quantity       int      `json:"quantity" validate:"required,min=0"`
}

func ListingCreate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		listing, err := svc.CreateListing(r.Context(), actorID, storeID, listings.CreateListingInput{
			Name:           validators.SanitizeString(payload.Name, maxListingNameLen),
			Category:       validators.SanitizeString(payload.Category, maxListingNameLen),
			Description:    payload.Description,
			Tags:           payload.Tags,
			UnitPriceCents: payload.UnitPriceCents,
			Quantity:       payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

type updateListingRequest struct {
	Name           *string   `json:"name"`
	Category       *string   `json:"category"`
	Description    *string   `json:"description"`
	Tags           *[]string `json:"tags"`
	UnitPriceCents *int64    `json:"unit_price_cents"`
	Quantity       *int      `json:"quantity"`
}

func ListingUpdate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
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
		var payload updateListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		listing, err := svc.UpdateListing(r.Context(), actorID, storeID, listingID, listings.UpdateListingInput{
			Name:           payload.Name,
			Category:       payload.Category,
			Description:    payload.Description,
			Tags:           payload.Tags,
			UnitPriceCents: payload.UnitPriceCents,
			Quantity:       payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingDelete(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
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
		actorID := middleware.ActorIDFromContext(r.Context())
		if err := svc.DeleteListing(r.Context(), actorID, storeID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ListingGet(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.GetListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingList(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListStoreListings(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
