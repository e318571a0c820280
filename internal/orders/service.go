package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/webloom/storefront-backend/pkg/db"
	"github.com/webloom/storefront-backend/pkg/db/models"
	"github.com/webloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
	"github.com/webloom/storefront-backend/pkg/pagination"
	"github.com/webloom/storefront-backend/pkg/razorpay"
)

type service struct {
	repo    Repository
	gateway GatewayClient
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, gateway GatewayClient) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	return &service{repo: repo, gateway: gateway}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	order := &models.Order{
		UserID:           input.UserID,
		Items:            input.Items,
		Address:          input.Address,
		Status:           enums.OrderStatusPending,
		PaymentMode:      input.PaymentMode,
		PaymentStatus:    input.PaymentStatus,
		Total:            input.Total,
		GatewayOrderID:   normalizeOptional(input.GatewayOrderID),
		GatewayPaymentID: normalizeOptional(input.GatewayPaymentID),
		GatewaySignature: normalizeOptional(input.GatewaySignature),
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = enums.PaymentStatusPending
	}

	coerceGatewayPaid(order)
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist order")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*OrderPage, error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list orders")
	}
	return page, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list user orders")
	}
	return rows, nil
}

func (s *service) UpdateOrder(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
	}

	if input.PaymentMode != nil && *input.PaymentMode != order.PaymentMode {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment mode is immutable").
			WithDetails(map[string]any{"payment_mode": order.PaymentMode.String()})
	}
	if input.Status != nil {
		order.Status = *input.Status
	}
	if input.PaymentStatus != nil {
		order.PaymentStatus = *input.PaymentStatus
	}
	if input.GatewayOrderID != nil {
		order.GatewayOrderID = normalizeOptional(input.GatewayOrderID)
	}
	if input.GatewayPaymentID != nil {
		order.GatewayPaymentID = normalizeOptional(input.GatewayPaymentID)
	}
	if input.GatewaySignature != nil {
		order.GatewaySignature = normalizeOptional(input.GatewaySignature)
	}

	coerceGatewayPaid(order)
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist order update")
	}
	return updated, nil
}

func (s *service) CreateGatewayOrder(ctx context.Context, input CreateGatewayOrderInput) (*razorpay.Order, error) {
	if input.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be a positive integer in minor units").
			WithDetails(map[string]any{"amount": input.AmountMinor})
	}
	if input.Currency != "" {
		if _, err := enums.ParseCurrency(input.Currency); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency is not supported").
				WithDetails(map[string]any{"currency": input.Currency})
		}
	}
	return s.gateway.CreateOrder(ctx, razorpay.CreateOrderParams{
		AmountMinor: input.AmountMinor,
		Currency:    input.Currency,
		Receipt:     input.Receipt,
		Notes:       input.Notes,
	})
}

// VerifyGatewayPayment checks the signature triple and nothing else. It never
// persists an order; order commit is a separate explicit Create by the caller.
func (s *service) VerifyGatewayPayment(_ context.Context, input VerifyPaymentInput) (bool, error) {
	missing := map[string]string{}
	if strings.TrimSpace(input.GatewayOrderID) == "" {
		missing["gateway_order_id"] = "is required"
	}
	if strings.TrimSpace(input.GatewayPaymentID) == "" {
		missing["gateway_payment_id"] = "is required"
	}
	if strings.TrimSpace(input.Signature) == "" {
		missing["signature"] = "is required"
	}
	if len(missing) > 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "verification input incomplete").WithDetails(missing)
	}

	verified := razorpay.VerifyPaymentSignature(
		input.GatewayOrderID,
		input.GatewayPaymentID,
		input.Signature,
		s.gateway.KeySecret(),
	)
	return verified, nil
}

// coerceGatewayPaid applies the write-time rule: a card order carrying a
// gateway payment id is a paid, confirmed order. Runs before validation so the
// conditional requireds see the coerced state.
func coerceGatewayPaid(order *models.Order) {
	if order.PaymentMode != enums.PaymentModeCard {
		return
	}
	if order.GatewayPaymentID == nil || *order.GatewayPaymentID == "" {
		return
	}
	order.PaymentStatus = enums.PaymentStatusPaid
	if order.Status == enums.OrderStatusPending {
		order.Status = enums.OrderStatusConfirmed
	}
}

func validateOrder(order *models.Order) error {
	details := map[string]string{}

	if order.UserID == uuid.Nil {
		details["user_id"] = "is required"
	}
	if len(order.Items) == 0 {
		details["items"] = "must not be empty"
	}
	for i, line := range order.Items {
		if line.ProductID == uuid.Nil {
			details[fmt.Sprintf("items[%d].product_id", i)] = "is required"
		}
		if line.Qty <= 0 {
			details[fmt.Sprintf("items[%d].qty", i)] = "must be positive"
		}
		if line.UnitPrice.IsNegative() {
			details[fmt.Sprintf("items[%d].unit_price", i)] = "must not be negative"
		}
	}
	for _, field := range order.Address.Validate() {
		details[field] = "is required"
	}
	if !order.Status.IsValid() {
		details["status"] = "is invalid"
	}
	if !order.PaymentMode.IsValid() {
		details["payment_mode"] = "is invalid"
	}
	if !order.PaymentStatus.IsValid() {
		details["payment_status"] = "is invalid"
	}
	if !order.Total.IsPositive() {
		details["total"] = "must be positive"
	}

	if order.PaymentMode.RequiresGateway() {
		if order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
			details["gateway_order_id"] = "is required for gateway payment modes"
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			if order.GatewayPaymentID == nil || *order.GatewayPaymentID == "" {
				details["gateway_payment_id"] = "is required once paid"
			}
			if order.GatewaySignature == nil || *order.GatewaySignature == "" {
				details["gateway_signature"] = "is required once paid"
			}
		}
	} else {
		if order.GatewayOrderID != nil || order.GatewayPaymentID != nil || order.GatewaySignature != nil {
			details["gateway_order_id"] = "must be empty for cash on delivery"
		}
	}

	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order validation failed").WithDetails(details)
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
