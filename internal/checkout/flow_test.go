package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/webloom/storefront-backend/internal/orders"
	"github.com/webloom/storefront-backend/pkg/db/models"
	"github.com/webloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
	"github.com/webloom/storefront-backend/pkg/pagination"
	"github.com/webloom/storefront-backend/pkg/razorpay"
	"github.com/webloom/storefront-backend/pkg/types"
)

const testSecret = "flow_test_secret"

type stubOrderService struct {
	created       []orders.CreateOrderInput
	gatewayCalls  []orders.CreateGatewayOrderInput
	gatewayErr    error
	createErr     error
	nextGatewayID string
}

func (s *stubOrderService) Create(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, input)
	order := &models.Order{
		ID:               uuid.New(),
		UserID:           input.UserID,
		Items:            input.Items,
		Address:          input.Address,
		Status:           enums.OrderStatusPending,
		PaymentMode:      input.PaymentMode,
		PaymentStatus:    input.PaymentStatus,
		Total:            input.Total,
		GatewayOrderID:   input.GatewayOrderID,
		GatewayPaymentID: input.GatewayPaymentID,
		GatewaySignature: input.GatewaySignature,
	}
	if input.PaymentMode == enums.PaymentModeCard && input.GatewayPaymentID != nil {
		order.PaymentStatus = enums.PaymentStatusPaid
		order.Status = enums.OrderStatusConfirmed
	}
	return order, nil
}

func (s *stubOrderService) List(context.Context, pagination.Params) (*orders.OrderPage, error) {
	return &orders.OrderPage{}, nil
}

func (s *stubOrderService) ListByUser(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderService) UpdateOrder(context.Context, uuid.UUID, orders.UpdateOrderInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrderService) CreateGatewayOrder(_ context.Context, input orders.CreateGatewayOrderInput) (*razorpay.Order, error) {
	if s.gatewayErr != nil {
		return nil, s.gatewayErr
	}
	s.gatewayCalls = append(s.gatewayCalls, input)
	id := s.nextGatewayID
	if id == "" {
		id = "order_FLOW"
	}
	return &razorpay.Order{ID: id, Amount: input.AmountMinor, Currency: "INR", Status: "created"}, nil
}

func (s *stubOrderService) VerifyGatewayPayment(_ context.Context, input orders.VerifyPaymentInput) (bool, error) {
	return razorpay.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature, testSecret), nil
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func cardInput() CheckoutInput {
	return CheckoutInput{
		Items: []types.CartLine{
			{ProductID: uuid.New(), Name: "Ceramic mug", UnitPrice: decimal.RequireFromString("225.00"), Qty: 2},
		},
		Address: types.Address{
			Line1:      "14 Jubilee Road",
			City:       "Pune",
			State:      "MH",
			PostalCode: "411001",
			Country:    "IN",
		},
		Total:       decimal.RequireFromString("450.00"),
		PaymentMode: enums.PaymentModeCard,
	}
}

func codInput() CheckoutInput {
	input := cardInput()
	input.PaymentMode = enums.PaymentModeCOD
	return input
}

func newTestFlow(t *testing.T, svc orders.Service) *Flow {
	t.Helper()
	flow, err := NewFlow(svc, "rzp_test_key", 0, nil)
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}
	return flow
}

func TestFlowCODGoesStraightToCreated(t *testing.T) {
	svc := &stubOrderService{}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, codInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	attempt, err := flow.Submit(context.Background(), userID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.State != StateCreated {
		t.Fatalf("expected created got %s", attempt.State)
	}
	if attempt.Order == nil || attempt.Order.PaymentMode != enums.PaymentModeCOD {
		t.Fatalf("unexpected order %+v", attempt.Order)
	}
	if len(svc.gatewayCalls) != 0 {
		t.Fatalf("cash orders must not touch the gateway")
	}
}

func TestFlowCardHappyPath(t *testing.T) {
	svc := &stubOrderService{nextGatewayID: "order_450"}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	attempt, err := flow.Submit(context.Background(), userID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.State != StateAwaitingGatewayUI {
		t.Fatalf("expected awaiting gateway UI got %s", attempt.State)
	}
	if len(svc.gatewayCalls) != 1 || svc.gatewayCalls[0].AmountMinor != 45000 {
		t.Fatalf("gateway should receive 45000 minor units, got %+v", svc.gatewayCalls)
	}
	if attempt.GatewayOrder == nil || attempt.GatewayOrder.ID != "order_450" {
		t.Fatalf("gateway order missing from attempt: %+v", attempt.GatewayOrder)
	}
	if attempt.GatewayKeyID != "rzp_test_key" {
		t.Fatalf("handoff must carry the publishable key id, got %q", attempt.GatewayKeyID)
	}

	attempt, err = flow.CompleteGatewayPayment(context.Background(), userID, "pay_OK", sign("order_450", "pay_OK"))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if attempt.State != StateCreated {
		t.Fatalf("expected created got %s (reason %s)", attempt.State, attempt.Reason)
	}
	if attempt.Order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid order got %s", attempt.Order.PaymentStatus)
	}
	if len(svc.created) != 1 {
		t.Fatalf("exactly one order must be created, got %d", len(svc.created))
	}
	if svc.created[0].GatewayOrderID == nil || *svc.created[0].GatewayOrderID != "order_450" {
		t.Fatalf("order must carry the gateway order id")
	}
}

func TestFlowTamperedSignatureFails(t *testing.T) {
	svc := &stubOrderService{nextGatewayID: "order_450"}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := flow.Submit(context.Background(), userID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	attempt, err := flow.CompleteGatewayPayment(context.Background(), userID, "pay_OK", sign("order_450", "pay_TAMPERED"))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if attempt.State != StateFailed || attempt.Reason != ReasonVerificationFailed {
		t.Fatalf("expected verification failure got state=%s reason=%s", attempt.State, attempt.Reason)
	}
	if len(svc.created) != 0 {
		t.Fatalf("no order may be created after a failed verification")
	}
}

func TestFlowCancelDuringHostedUI(t *testing.T) {
	svc := &stubOrderService{}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := flow.Submit(context.Background(), userID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	attempt, err := flow.Cancel(context.Background(), userID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if attempt.State != StateFailed || attempt.Reason != ReasonUserCancelled {
		t.Fatalf("expected user cancellation got state=%s reason=%s", attempt.State, attempt.Reason)
	}
	if !attempt.Retryable {
		t.Fatalf("cancellation must leave a retryable attempt")
	}
	if len(svc.created) != 0 {
		t.Fatalf("no partial order may survive a cancellation")
	}

	// The user can start over.
	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin after cancel: %v", err)
	}
}

func TestFlowSingleFlight(t *testing.T) {
	svc := &stubOrderService{}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := flow.Submit(context.Background(), userID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := flow.Begin(context.Background(), userID, cardInput())
	if err == nil {
		t.Fatalf("expected single-flight conflict")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}

	// A different user is unaffected.
	if _, err := flow.Begin(context.Background(), uuid.New(), cardInput()); err != nil {
		t.Fatalf("other user begin: %v", err)
	}
}

func TestFlowAwaitTimeout(t *testing.T) {
	svc := &stubOrderService{nextGatewayID: "order_450"}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := flow.Submit(context.Background(), userID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	now := time.Now()
	flow.now = func() time.Time { return now.Add(DefaultAwaitTimeout + time.Minute) }

	_, err := flow.CompleteGatewayPayment(context.Background(), userID, "pay_OK", sign("order_450", "pay_OK"))
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	attempt, ok := flow.Current(userID)
	if !ok {
		t.Fatalf("attempt disappeared")
	}
	if attempt.State != StateFailed || attempt.Reason != ReasonTimeout {
		t.Fatalf("expected timeout failure got state=%s reason=%s", attempt.State, attempt.Reason)
	}
	if !attempt.Retryable {
		t.Fatalf("timeouts must be retryable")
	}
	if len(svc.created) != 0 {
		t.Fatalf("no order may be created after a timeout")
	}
}

func TestFlowGatewayFailureIsRetryable(t *testing.T) {
	svc := &stubOrderService{
		gatewayErr: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("status 502"), "gateway order creation failed"),
	}
	flow := newTestFlow(t, svc)
	userID := uuid.New()

	if _, err := flow.Begin(context.Background(), userID, cardInput()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err := flow.Submit(context.Background(), userID)
	if err == nil {
		t.Fatalf("expected gateway failure")
	}

	attempt, _ := flow.Current(userID)
	if attempt.State != StateFailed || attempt.Reason != ReasonGatewayUnavailable {
		t.Fatalf("expected gateway failure got state=%s reason=%s", attempt.State, attempt.Reason)
	}
	if !attempt.Retryable {
		t.Fatalf("gateway failures must be retryable")
	}

	// The flow never auto-retries: the gateway saw no further calls.
	if len(svc.gatewayCalls) != 0 {
		t.Fatalf("gateway must not be retried automatically")
	}
}

type blockingGatewayService struct {
	*stubOrderService
	entered chan struct{}
	release chan struct{}
}

func (s *blockingGatewayService) CreateGatewayOrder(ctx context.Context, input orders.CreateGatewayOrderInput) (*razorpay.Order, error) {
	close(s.entered)
	<-s.release
	return s.stubOrderService.CreateGatewayOrder(ctx, input)
}

func TestFlowSlowGatewayDoesNotBlockOtherUsers(t *testing.T) {
	svc := &blockingGatewayService{
		stubOrderService: &stubOrderService{nextGatewayID: "order_SLOW"},
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	flow := newTestFlow(t, svc)

	slowUser := uuid.New()
	if _, err := flow.Begin(context.Background(), slowUser, cardInput()); err != nil {
		t.Fatalf("begin slow user: %v", err)
	}

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		if _, err := flow.Submit(context.Background(), slowUser); err != nil {
			t.Errorf("submit slow user: %v", err)
		}
	}()
	<-svc.entered

	// The slow user's gateway call is in flight; everyone else keeps moving.
	otherUser := uuid.New()
	begun := make(chan error, 1)
	go func() {
		_, err := flow.Begin(context.Background(), otherUser, codInput())
		begun <- err
	}()
	select {
	case err := <-begun:
		if err != nil {
			t.Fatalf("begin other user: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("begin stalled behind another user's gateway call")
	}

	current, ok := flow.Current(slowUser)
	if !ok || current.State != StateRequestingGatewayOrder {
		t.Fatalf("expected in-flight attempt visible, got %+v", current)
	}

	close(svc.release)
	<-submitted

	attempt, _ := flow.Current(slowUser)
	if attempt.State != StateAwaitingGatewayUI {
		t.Fatalf("expected awaiting_gateway_ui got %s", attempt.State)
	}
}
