package controllers

import (
	"net/http"

	"github.com/openmarket/marketplace-backend/api/middleware"
	"github.com/openmarket/marketplace-backend/api/responses"
	"github.com/openmarket/marketplace-backend/api/validators"
	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/logger"
)

type cardPayload struct {
	Number string `json:"number" validate:"required"`
	Month  string `json:"month" validate:"required"`
	Year   string `json:"year" validate:"required"`
	Holder string `json:"holder" validate:"required"`
	CCV    string `json:"ccv" validate:"required"`
}

func (p cardPayload) toDetails() purchases.CardDetails {
	return purchases.CardDetails{
		Number: p.Number,
		Month:  p.Month,
		Year:   p.Year,
		Holder: p.Holder,
		CCV:    p.CCV,
	}
}

type destinationPayload struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
	Contact string `json:"contact"`
}

func (p destinationPayload) toDestination() purchases.Destination {
	return purchases.Destination{
		Name:    p.Name,
		Address: p.Address,
		City:    p.City,
		Country: p.Country,
		Zip:     p.Zip,
		Contact: p.Contact,
	}
}

type checkoutRequest struct {
	Card        cardPayload        `json:"card" validate:"required"`
	Destination destinationPayload `json:"destination" validate:"required"`
}

func Checkout(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID := middleware.ActorIDFromContext(r.Context())
		receipt, err := svc.Checkout(r.Context(), buyerID, purchases.CheckoutInput{
			Card:        payload.Card.toDetails(),
			Destination: payload.Destination.toDestination(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

func BuyerHistory(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID := middleware.ActorIDFromContext(r.Context())
		history, err := svc.BuyerHistory(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

func StoreHistory(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.StoreHistory(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
