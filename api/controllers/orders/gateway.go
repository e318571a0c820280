package orders

import (
	"net/http"

	"github.com/webloom/storefront-backend/api/responses"
	"github.com/webloom/storefront-backend/api/validators"
	internalorders "github.com/webloom/storefront-backend/internal/orders"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
	"github.com/webloom/storefront-backend/pkg/logger"
)

type createGatewayOrderRequest struct {
	Amount   int64             `json:"amount" validate:"required"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"gateway_signature" validate:"required"`
}

type verifyPaymentResponse struct {
	Verified bool `json:"verified"`
}

// CreateGatewayOrder creates a payment-intent on the gateway:
// POST /orders/gateway/create. The amount is already integer minor units.
func CreateGatewayOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req createGatewayOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateGatewayOrder(r.Context(), internalorders.CreateGatewayOrderInput{
			AmountMinor: req.Amount,
			Currency:    req.Currency,
			Receipt:     req.Receipt,
			Notes:       req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// VerifyGatewayPayment checks a payment signature triple:
// POST /orders/gateway/verify. A mismatch is a legitimate outcome, so it is a
// 200 with verified=false; only malformed input is a 400. Nothing persists.
func VerifyGatewayPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		verified, err := svc.VerifyGatewayPayment(r.Context(), internalorders.VerifyPaymentInput{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verifyPaymentResponse{Verified: verified})
	}
}
