package orders

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/webloom/storefront-backend/api/responses"
	"github.com/webloom/storefront-backend/api/validators"
	internalorders "github.com/webloom/storefront-backend/internal/orders"
	"github.com/webloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
	"github.com/webloom/storefront-backend/pkg/logger"
	"github.com/webloom/storefront-backend/pkg/pagination"
	"github.com/webloom/storefront-backend/pkg/types"
)

type createOrderRequest struct {
	UserID           string           `json:"user_id" validate:"required,uuid"`
	Items            []types.CartLine `json:"items" validate:"required,min=1"`
	Address          types.Address    `json:"address" validate:"required"`
	PaymentMode      string           `json:"payment_mode" validate:"required"`
	PaymentStatus    string           `json:"payment_status"`
	Total            decimal.Decimal  `json:"total" validate:"required"`
	GatewayOrderID   *string          `json:"gateway_order_id"`
	GatewayPaymentID *string          `json:"gateway_payment_id"`
	GatewaySignature *string          `json:"gateway_signature"`
}

type updateOrderRequest struct {
	Status           *string `json:"status"`
	PaymentStatus    *string `json:"payment_status"`
	PaymentMode      *string `json:"payment_mode"`
	GatewayOrderID   *string `json:"gateway_order_id"`
	GatewayPaymentID *string `json:"gateway_payment_id"`
	GatewaySignature *string `json:"gateway_signature"`
}

// Create persists a new order: POST /orders.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildCreateInput(req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns orders plus the unfiltered total in X-Total-Count:
// GET /orders?page&limit. Without page or limit it returns every order,
// matching the unpaginated admin listing.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var params pagination.Params
		if query := r.URL.Query(); query.Has("page") || query.Has("limit") {
			page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			params = pagination.Params{Page: page, Limit: limit}
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-Total-Count", fmt.Sprintf("%d", result.Total))
		responses.WriteSuccess(w, result.Orders)
	}
}

// ListByUser returns a user's orders with the user profile expanded:
// GET /orders/user/{userId}.
func ListByUser(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// Patch applies a partial update, typically a status transition:
// PATCH /orders/{orderId}.
func Patch(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildUpdateInput(req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateOrder(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func buildCreateInput(req createOrderRequest) (internalorders.CreateOrderInput, error) {
	userID, err := validators.ParseUUID(req.UserID, "user_id")
	if err != nil {
		return internalorders.CreateOrderInput{}, err
	}

	mode, err := enums.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "payment mode is invalid").
			WithDetails(map[string]any{"payment_mode": req.PaymentMode})
	}

	var status enums.PaymentStatus
	if req.PaymentStatus != "" {
		status, err = enums.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "payment status is invalid").
				WithDetails(map[string]any{"payment_status": req.PaymentStatus})
		}
	}

	return internalorders.CreateOrderInput{
		UserID:           userID,
		Items:            req.Items,
		Address:          req.Address,
		PaymentMode:      mode,
		PaymentStatus:    status,
		Total:            req.Total,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
	}, nil
}

func buildUpdateInput(req updateOrderRequest) (internalorders.UpdateOrderInput, error) {
	var input internalorders.UpdateOrderInput

	if req.Status != nil {
		status, err := enums.ParseOrderStatus(*req.Status)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "status is invalid").
				WithDetails(map[string]any{"status": *req.Status})
		}
		input.Status = &status
	}
	if req.PaymentStatus != nil {
		status, err := enums.ParsePaymentStatus(*req.PaymentStatus)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "payment status is invalid").
				WithDetails(map[string]any{"payment_status": *req.PaymentStatus})
		}
		input.PaymentStatus = &status
	}
	if req.PaymentMode != nil {
		mode, err := enums.ParsePaymentMode(*req.PaymentMode)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "payment mode is invalid").
				WithDetails(map[string]any{"payment_mode": *req.PaymentMode})
		}
		input.PaymentMode = &mode
	}
	input.GatewayOrderID = req.GatewayOrderID
	input.GatewayPaymentID = req.GatewayPaymentID
	input.GatewaySignature = req.GatewaySignature

	return input, nil
}
