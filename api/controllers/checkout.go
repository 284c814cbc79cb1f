package controllers

import (
	"net/http"

	"github.com/agustinromero/storefront-backend/api/responses"
	"github.com/agustinromero/storefront-backend/api/validators"
	checkoutsvc "github.com/agustinromero/storefront-backend/internal/checkout"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/agustinromero/storefront-backend/pkg/logger"
	"github.com/agustinromero/storefront-backend/pkg/types"
)

type checkoutRequest struct {
	Address    types.Address `json:"address" validate:"required"`
	PaymentRef string        `json:"payment_ref" validate:"required"`
}

// Checkout finalizes the caller's active cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Finalize(r.Context(), userID, checkoutsvc.FinalizeInput{
			Address:    payload.Address,
			PaymentRef: payload.PaymentRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
