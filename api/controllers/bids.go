package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/api/responses"
	"github.com/openmarket/marketplace-backend/api/validators"
	"github.com/openmarket/marketplace-backend/internal/bids"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

type placeBidRequest struct {
	Qty         int                `json:"qty" validate:"required,min=1"`
	OfferCents  int64              `json:"offer_cents" validate:"required,min=1"`
	Card        cardPayload        `json:"card" validate:"required"`
	Destination destinationPayload `json:"destination" validate:"required"`
}

// bidRef builds the negotiation key from the URL. The buyer comes from the
// actor header on buyer routes and from the path on staff routes.
func bidRef(r *http.Request, buyerID uuid.UUID) (bids.BidRef, error) {
	storeID, err := pathUUID(r, "storeID")
	if err != nil {
		return bids.BidRef{}, err
	}
	listingID, err := pathUUID(r, "listingID")
	if err != nil {
		return bids.BidRef{}, err
	}
	return bids.BidRef{StoreID: storeID, ListingID: listingID, BuyerID: buyerID}, nil
}

func staffBidRef(r *http.Request) (bids.BidRef, error) {
	buyerID, err := pathUUID(r, "buyerID")
	if err != nil {
		return bids.BidRef{}, err
	}
	return bidRef(r, buyerID)
}

func BidPlace(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
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
		var payload placeBidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID := middleware.ActorIDFromContext(r.Context())
		bid, err := svc.PlaceBid(r.Context(), bids.PlaceBidInput{
			BuyerID:     buyerID,
			StoreID:     storeID,
			ListingID:   listingID,
			Qty:         payload.Qty,
			OfferCents:  payload.OfferCents,
			Card:        payload.Card.toDetails(),
			Destination: payload.Destination.toDestination(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

func BidApprove(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := staffBidRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approverID := middleware.ActorIDFromContext(r.Context())
		bid, err := svc.Approve(r.Context(), ref, approverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

func BidReject(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := staffBidRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approverID := middleware.ActorIDFromContext(r.Context())
		bid, err := svc.Reject(r.Context(), ref, approverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

type counterOfferRequest struct {
	PriceCents int64 `json:"price_cents" validate:"required,min=1"`
}

func BidCounter(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := staffBidRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload counterOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.CounterOffer(r.Context(), ref, payload.PriceCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

func BidAcceptCounter(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := bidRef(r, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.AcceptCounter(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

func BidDeclineCounter(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := bidRef(r, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.DeclineCounter(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

func BidStatus(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := bidRef(r, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.Status(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}
