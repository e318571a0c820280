package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/webloom/storefront-backend/pkg/enums"
	"github.com/webloom/storefront-backend/pkg/types"
)

// Order is the persisted record of a completed checkout. Items and address are
// JSON snapshots taken at order time; only status and payment_status transition
// afterwards. The gateway_* columns are populated for non-COD modes only.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	User             *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items            []types.CartLine    `gorm:"column:items;type:jsonb;serializer:json;not null" json:"items"`
	Address          types.Address       `gorm:"column:address;type:jsonb;serializer:json;not null" json:"address"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	PaymentMode      enums.PaymentMode   `gorm:"column:payment_mode;type:text;not null" json:"payment_mode"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'" json:"payment_status"`
	Total            decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id" json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id" json:"gateway_payment_id,omitempty"`
	GatewaySignature *string             `gorm:"column:gateway_signature" json:"gateway_signature,omitempty"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
