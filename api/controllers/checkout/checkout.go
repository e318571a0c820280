package checkout

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/webloom/storefront-backend/api/responses"
	"github.com/webloom/storefront-backend/api/validators"
	checkoutflow "github.com/webloom/storefront-backend/internal/checkout"
	"github.com/webloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
	"github.com/webloom/storefront-backend/pkg/logger"
	"github.com/webloom/storefront-backend/pkg/types"
)

type beginRequest struct {
	UserID      string           `json:"user_id" validate:"required,uuid"`
	Items       []types.CartLine `json:"items" validate:"required,min=1"`
	Address     types.Address    `json:"address" validate:"required"`
	Total       decimal.Decimal  `json:"total" validate:"required"`
	PaymentMode string           `json:"payment_mode" validate:"required"`
}

type attemptRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type completeRequest struct {
	UserID           string `json:"user_id" validate:"required,uuid"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// Begin opens a checkout attempt for the user: POST /checkout/begin.
func Begin(flow *checkoutflow.Flow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var req beginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := validators.ParseUUID(req.UserID, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParsePaymentMode(req.PaymentMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment mode is invalid").
				WithDetails(map[string]any{"payment_mode": req.PaymentMode}))
			return
		}

		attempt, err := flow.Begin(r.Context(), userID, checkoutflow.CheckoutInput{
			Items:       req.Items,
			Address:     req.Address,
			Total:       req.Total,
			PaymentMode: mode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, attempt)
	}
}

// Submit moves the attempt past address selection. COD attempts create the
// order immediately; gateway modes come back awaiting the hosted payment UI.
func Submit(flow *checkoutflow.Flow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		userID, err := decodeAttemptUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := flow.Submit(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// Complete hands the hosted UI's payment id and signature back to the flow:
// POST /checkout/complete.
func Complete(flow *checkoutflow.Flow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var req completeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUID(req.UserID, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := flow.CompleteGatewayPayment(r.Context(), userID, req.GatewayPaymentID, req.Signature)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// Cancel abandons the in-flight attempt: POST /checkout/cancel.
func Cancel(flow *checkoutflow.Flow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		userID, err := decodeAttemptUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := flow.Cancel(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// Current returns the user's latest attempt: GET /checkout/{userId}.
func Current(flow *checkoutflow.Flow, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if flow == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, ok := flow.Current(userID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout attempt for user"))
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

func decodeAttemptUser(r *http.Request) (uuid.UUID, error) {
	var req attemptRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		return uuid.Nil, err
	}
	return validators.ParseUUID(req.UserID, "user_id")
}
