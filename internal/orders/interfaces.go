package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/webloom/storefront-backend/pkg/db/models"
	"github.com/webloom/storefront-backend/pkg/pagination"
	"github.com/webloom/storefront-backend/pkg/razorpay"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params) (*OrderPage, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Service defines order operations above the repository.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	List(ctx context.Context, params pagination.Params) (*OrderPage, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error)
	CreateGatewayOrder(ctx context.Context, input CreateGatewayOrderInput) (*razorpay.Order, error)
	VerifyGatewayPayment(ctx context.Context, input VerifyPaymentInput) (bool, error)
}

// GatewayClient is the slice of the payment gateway adapter the service uses.
type GatewayClient interface {
	CreateOrder(ctx context.Context, params razorpay.CreateOrderParams) (*razorpay.Order, error)
	KeySecret() string
}
