package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/webloom/storefront-backend/pkg/config"
	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
)

const (
	defaultBaseURL            = "https://api.razorpay.com/v1"
	errorBodyReadLimit  int64 = 2048
	defaultReceiptScope       = "order"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

// Client wraps the Razorpay Orders API. Credentials are injected once at
// construction from process configuration; the secret is held privately and
// never logged.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	keyID           string
	keySecret       string
	defaultCurrency string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the gateway base URL (used against sandboxes and tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient validates the credentials and builds the gateway client.
func NewClient(cfg config.RazorpayConfig, opts ...Option) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	currency := strings.TrimSpace(cfg.DefaultCurrency)
	if currency == "" {
		currency = "INR"
	}

	client := &Client{
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		baseURL:         defaultBaseURL,
		keyID:           keyID,
		keySecret:       keySecret,
		defaultCurrency: currency,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// KeyID returns the public key identifier handed to the hosted checkout UI.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// KeySecret returns the shared secret used for payment signature verification.
func (c *Client) KeySecret() string {
	if c == nil {
		return ""
	}
	return c.keySecret
}

// CreateOrderParams describes a gateway payment-order request. AmountMinor is
// in the currency's smallest unit and must already be a positive integer;
// callers convert major-unit decimals up front.
type CreateOrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the gateway's payment-order record. It is ephemeral: the gateway
// owns it, this service never persists it.
type Order struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes,omitempty"`
	Status    string            `json:"status"`
	CreatedAt int64             `json:"created_at"`
}

// CreateOrder creates a payment-intent on the gateway. It performs no retries
// and no deduplication: two calls mean two gateway orders unless the gateway
// itself collapses them by receipt.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be a positive integer in the currency's smallest unit").
			WithDetails(map[string]any{"amount": params.AmountMinor})
	}

	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = c.defaultCurrency
	}
	receipt := strings.TrimSpace(params.Receipt)
	if receipt == "" {
		receipt = NewReceipt(defaultReceiptScope)
	}
	notes := params.Notes
	if notes == nil {
		notes = map[string]string{}
	}

	body := struct {
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Receipt  string            `json:"receipt"`
		Notes    map[string]string `json:"notes"`
	}{
		Amount:   params.AmountMinor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gateway order request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway unavailable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, gatewayError(resp), "gateway order creation failed")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway order response")
	}
	return &order, nil
}

// NewReceipt returns a unique receipt token for gateway orders.
func NewReceipt(scope string) string {
	trimmed := strings.TrimSpace(scope)
	if trimmed == "" {
		trimmed = defaultReceiptScope
	}
	return fmt.Sprintf("%s_%s", trimmed, uuid.NewString())
}

// gatewayError extracts the gateway's error description without leaking
// credentials; Razorpay nests it under error.description.
func gatewayError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var apiErr struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Description != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Description)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
