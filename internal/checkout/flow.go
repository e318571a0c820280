package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/webloom/storefront-backend/internal/orders"
	"github.com/webloom/storefront-backend/pkg/db/models"
	"github.com/webloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
	"github.com/webloom/storefront-backend/pkg/logger"
	"github.com/webloom/storefront-backend/pkg/razorpay"
	"github.com/webloom/storefront-backend/pkg/types"
)

// State names one step of a checkout attempt.
type State string

const (
	StateIdle                   State = "idle"
	StateAddressSelected        State = "address_selected"
	StateRequestingGatewayOrder State = "requesting_gateway_order"
	StateAwaitingGatewayUI      State = "awaiting_gateway_ui"
	StateVerifyingPayment       State = "verifying_payment"
	StateCreating               State = "creating"
	StateCreated                State = "created"
	StateFailed                 State = "failed"
)

// FailureReason classifies a failed attempt.
type FailureReason string

const (
	ReasonUserCancelled      FailureReason = "user_cancelled"
	ReasonVerificationFailed FailureReason = "verification_failed"
	ReasonGatewayUnavailable FailureReason = "gateway_unavailable"
	ReasonTimeout            FailureReason = "timeout"
	ReasonPersistence        FailureReason = "persistence"
	ReasonInvalidInput       FailureReason = "invalid_input"
)

// DefaultAwaitTimeout bounds how long a hosted-UI handoff may stay open.
const DefaultAwaitTimeout = 10 * time.Minute

// Attempt is one checkout run for one user. The flow holds at most one live
// attempt per user.
type Attempt struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	State        State             `json:"state"`
	Reason       FailureReason     `json:"reason,omitempty"`
	Retryable    bool              `json:"retryable"`
	Order        *models.Order     `json:"order,omitempty"`
	GatewayOrder *razorpay.Order   `json:"gateway_order,omitempty"`
	GatewayKeyID string            `json:"gateway_key_id,omitempty"`
	awaitStarted time.Time
	items        []types.CartLine
	address      types.Address
	total        decimal.Decimal
	paymentMode  enums.PaymentMode
}

// CheckoutInput is the cart snapshot an attempt starts from.
type CheckoutInput struct {
	Items       []types.CartLine
	Address     types.Address
	Total       decimal.Decimal
	PaymentMode enums.PaymentMode
}

// Flow drives checkout attempts through their state machine. All transitions
// go through the mutex; a second submit while an attempt is in flight fails
// instead of forking.
type Flow struct {
	mu       sync.Mutex
	svc      orders.Service
	keyID    string
	timeout  time.Duration
	now      func() time.Time
	logg     *logger.Logger
	attempts map[uuid.UUID]*Attempt
}

// NewFlow builds a checkout flow over the order service. keyID is the
// gateway's publishable key, handed to clients for the hosted UI; the key
// secret never passes through here.
func NewFlow(svc orders.Service, keyID string, timeout time.Duration, logg *logger.Logger) (*Flow, error) {
	if svc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}
	return &Flow{
		svc:      svc,
		keyID:    keyID,
		timeout:  timeout,
		now:      time.Now,
		logg:     logg,
		attempts: make(map[uuid.UUID]*Attempt),
	}, nil
}

// Begin starts an attempt from a cart snapshot: Idle -> AddressSelected.
func (f *Flow) Begin(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*Attempt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if missing := input.Address.Validate(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if !input.PaymentMode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment mode is invalid")
	}
	if !input.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "total must be positive")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.attempts[userID]; ok && existing.inFlight() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already in progress").
			WithDetails(map[string]any{"state": string(existing.State)})
	}

	attempt := &Attempt{
		ID:          uuid.New(),
		UserID:      userID,
		State:       StateAddressSelected,
		items:       input.Items,
		address:     input.Address,
		total:       input.Total,
		paymentMode: input.PaymentMode,
	}
	f.attempts[userID] = attempt

	if f.logg != nil {
		f.logg.Info(f.withAttempt(ctx, attempt), "checkout.begin")
	}
	return attempt.snapshot(), nil
}

// Submit advances past address selection. Cash orders go straight to Creating;
// gateway-backed orders request a gateway payment-order and hand off to the
// hosted UI. The mutex is released around the gateway call so one slow
// response never serializes every other user's checkout.
func (f *Flow) Submit(ctx context.Context, userID uuid.UUID) (*Attempt, error) {
	f.mu.Lock()

	attempt, err := f.attemptIn(userID, StateAddressSelected)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}

	if !attempt.paymentMode.RequiresGateway() {
		attempt.State = StateCreating
		input := attempt.orderInput(nil, nil, nil, enums.PaymentStatusPending)
		f.mu.Unlock()
		return f.persistOrder(ctx, userID, input)
	}

	attempt.State = StateRequestingGatewayOrder

	amountMinor, err := orders.ToMinorUnits(attempt.total)
	if err != nil {
		attempt.fail(ReasonInvalidInput, false)
		f.mu.Unlock()
		return nil, err
	}

	input := orders.CreateGatewayOrderInput{
		AmountMinor: amountMinor,
		Notes:       map[string]string{"attempt_id": attempt.ID.String()},
	}
	f.mu.Unlock()

	gatewayOrder, gatewayErr := f.svc.CreateGatewayOrder(ctx, input)

	f.mu.Lock()
	defer f.mu.Unlock()

	attempt, err = f.attemptIn(userID, StateRequestingGatewayOrder)
	if err != nil {
		return nil, err
	}
	if gatewayErr != nil {
		attempt.fail(ReasonGatewayUnavailable, true)
		if f.logg != nil {
			f.logg.Error(f.withAttempt(ctx, attempt), "checkout.gateway_order_failed", gatewayErr)
		}
		return nil, gatewayErr
	}

	attempt.State = StateAwaitingGatewayUI
	attempt.GatewayOrder = gatewayOrder
	attempt.GatewayKeyID = f.keyID
	attempt.awaitStarted = f.now()

	if f.logg != nil {
		f.logg.Info(f.withAttempt(ctx, attempt), "checkout.awaiting_gateway_ui")
	}
	return attempt.snapshot(), nil
}

// CompleteGatewayPayment handles the hosted-UI callback: AwaitingGatewayUI ->
// VerifyingPayment -> Creating. Creating is reachable only with a verified
// signature.
func (f *Flow) CompleteGatewayPayment(ctx context.Context, userID uuid.UUID, paymentID, signature string) (*Attempt, error) {
	f.mu.Lock()

	attempt, err := f.attemptIn(userID, StateAwaitingGatewayUI)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}

	if f.now().Sub(attempt.awaitStarted) > f.timeout {
		attempt.fail(ReasonTimeout, true)
		f.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "gateway handoff timed out").
			WithDetails(map[string]any{"timeout": f.timeout.String()})
	}

	attempt.State = StateVerifyingPayment
	gatewayOrderID := attempt.GatewayOrder.ID
	f.mu.Unlock()

	verified, verifyErr := f.svc.VerifyGatewayPayment(ctx, orders.VerifyPaymentInput{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signature,
	})

	f.mu.Lock()
	attempt, err = f.attemptIn(userID, StateVerifyingPayment)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if verifyErr != nil {
		attempt.fail(ReasonInvalidInput, false)
		f.mu.Unlock()
		return nil, verifyErr
	}
	if !verified {
		attempt.fail(ReasonVerificationFailed, false)
		if f.logg != nil {
			f.logg.Warn(f.withAttempt(ctx, attempt), "checkout.verification_failed")
		}
		snap := attempt.snapshot()
		f.mu.Unlock()
		return snap, nil
	}

	attempt.State = StateCreating
	input := attempt.orderInput(&gatewayOrderID, &paymentID, &signature, enums.PaymentStatusPaid)
	f.mu.Unlock()

	return f.persistOrder(ctx, userID, input)
}

// Cancel records a hosted-UI dismissal. No partial order survives.
func (f *Flow) Cancel(ctx context.Context, userID uuid.UUID) (*Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attempt, err := f.attemptIn(userID, StateAwaitingGatewayUI)
	if err != nil {
		return nil, err
	}

	attempt.fail(ReasonUserCancelled, true)
	if f.logg != nil {
		f.logg.Info(f.withAttempt(ctx, attempt), "checkout.cancelled")
	}
	return attempt.snapshot(), nil
}

// Sweep fails every attempt that has been waiting on the hosted UI longer
// than the timeout. Returns how many attempts were expired.
func (f *Flow) Sweep(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	expired := 0
	now := f.now()
	for _, attempt := range f.attempts {
		if attempt.State != StateAwaitingGatewayUI {
			continue
		}
		if now.Sub(attempt.awaitStarted) <= f.timeout {
			continue
		}
		attempt.fail(ReasonTimeout, true)
		expired++
		if f.logg != nil {
			f.logg.Info(f.withAttempt(ctx, attempt), "checkout.expired")
		}
	}
	return expired
}

// Current returns the user's attempt, if any.
func (f *Flow) Current(userID uuid.UUID) (*Attempt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attempt, ok := f.attempts[userID]
	if !ok {
		return nil, false
	}
	return attempt.snapshot(), true
}

// persistOrder runs the order write with the mutex released. The attempt
// must already be in Creating; Creating is in flight, so no other transition
// can claim the attempt while the write runs.
func (f *Flow) persistOrder(ctx context.Context, userID uuid.UUID, input orders.CreateOrderInput) (*Attempt, error) {
	order, createErr := f.svc.Create(ctx, input)

	f.mu.Lock()
	defer f.mu.Unlock()

	attempt, err := f.attemptIn(userID, StateCreating)
	if err != nil {
		return nil, err
	}
	if createErr != nil {
		attempt.fail(ReasonPersistence, true)
		if f.logg != nil {
			f.logg.Error(f.withAttempt(ctx, attempt), "checkout.create_failed", createErr)
		}
		return nil, createErr
	}

	attempt.State = StateCreated
	attempt.Order = order

	if f.logg != nil {
		ctx = f.logg.WithOrderID(f.withAttempt(ctx, attempt), order.ID.String())
		f.logg.Info(ctx, "checkout.created")
	}
	return attempt.snapshot(), nil
}

// orderInput captures the attempt's cart for the order write. Call with the
// mutex held.
func (a *Attempt) orderInput(gatewayOrderID, paymentID, signature *string, paymentStatus enums.PaymentStatus) orders.CreateOrderInput {
	return orders.CreateOrderInput{
		UserID:           a.UserID,
		Items:            a.items,
		Address:          a.address,
		PaymentMode:      a.paymentMode,
		PaymentStatus:    paymentStatus,
		Total:            a.total,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		GatewaySignature: signature,
	}
}

func (f *Flow) attemptIn(userID uuid.UUID, want State) (*Attempt, error) {
	attempt, ok := f.attempts[userID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout in progress")
	}
	if attempt.State != want {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not in the required state").
			WithDetails(map[string]any{"state": string(attempt.State), "required": string(want)})
	}
	return attempt, nil
}

func (f *Flow) withAttempt(ctx context.Context, attempt *Attempt) context.Context {
	if f.logg == nil {
		return ctx
	}
	return f.logg.WithFields(ctx, map[string]any{
		"attempt_id": attempt.ID.String(),
		"user_id":    attempt.UserID.String(),
		"state":      string(attempt.State),
	})
}

func (a *Attempt) inFlight() bool {
	switch a.State {
	case StateRequestingGatewayOrder, StateAwaitingGatewayUI, StateVerifyingPayment, StateCreating:
		return true
	}
	return false
}

func (a *Attempt) fail(reason FailureReason, retryable bool) {
	a.State = StateFailed
	a.Reason = reason
	a.Retryable = retryable
}

func (a *Attempt) snapshot() *Attempt {
	clone := *a
	return &clone
}
