package controllers

import (
	"net/http"
	"time"

	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/api/responses"
	"github.com/openmarket/marketplace-backend/api/validators"
	"github.com/openmarket/marketplace-backend/internal/auctions"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

type openAuctionRequest struct {
	Qty           int       `json:"qty" validate:"required,min=1"`
	StartingCents int64     `json:"starting_cents" validate:"min=0"`
	EndTime       time.Time `json:"end_time" validate:"required"`
}

func AuctionOpen(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
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
		var payload openAuctionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID := middleware.ActorIDFromContext(r.Context())
		auction, err := svc.Open(r.Context(), auctions.OpenInput{
			ActorID:       actorID,
			StoreID:       storeID,
			ListingID:     listingID,
			Qty:           payload.Qty,
			StartingCents: payload.StartingCents,
			EndTime:       payload.EndTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, auction)
	}
}

type auctionOfferRequest struct {
	AmountCents int64              `json:"amount_cents" validate:"required,min=1"`
	Card        cardPayload        `json:"card" validate:"required"`
	Destination destinationPayload `json:"destination" validate:"required"`
}

func AuctionOffer(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload auctionOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bidderID := middleware.ActorIDFromContext(r.Context())
		auction, err := svc.SubmitOffer(r.Context(), auctionID, auctions.OfferInput{
			BidderID:    bidderID,
			AmountCents: payload.AmountCents,
			Card:        payload.Card.toDetails(),
			Destination: payload.Destination.toDestination(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auction)
	}
}

func AuctionStatus(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.Status(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func AuctionClose(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := pathUUID(r, "auctionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		auction, err := svc.Close(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auction)
	}
}
