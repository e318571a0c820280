package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/webloom/storefront-backend/pkg/db/models"
	"github.com/webloom/storefront-backend/pkg/enums"
	"github.com/webloom/storefront-backend/pkg/types"
)

// CreateOrderInput carries a new order. Gateway fields are set only for
// gateway-backed payment modes.
type CreateOrderInput struct {
	UserID           uuid.UUID
	Items            []types.CartLine
	Address          types.Address
	PaymentMode      enums.PaymentMode
	PaymentStatus    enums.PaymentStatus
	Total            decimal.Decimal
	GatewayOrderID   *string
	GatewayPaymentID *string
	GatewaySignature *string
}

// UpdateOrderInput carries a partial order update. Nil fields are untouched.
// PaymentMode is accepted only so its immutability can be enforced with a
// clear error instead of silent ignoring.
type UpdateOrderInput struct {
	Status           *enums.OrderStatus
	PaymentStatus    *enums.PaymentStatus
	PaymentMode      *enums.PaymentMode
	GatewayOrderID   *string
	GatewayPaymentID *string
	GatewaySignature *string
}

// CreateGatewayOrderInput carries a gateway payment-order request in minor
// units.
type CreateGatewayOrderInput struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// VerifyPaymentInput carries the signature triple handed back by the hosted
// gateway UI.
type VerifyPaymentInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// OrderPage wraps one page of orders plus the unfiltered total.
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
}
