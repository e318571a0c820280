package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	checkoutflow "github.com/webloom/storefront-backend/internal/checkout"
	internalorders "github.com/webloom/storefront-backend/internal/orders"
	"github.com/webloom/storefront-backend/pkg/config"
	"github.com/webloom/storefront-backend/pkg/db/models"
	"github.com/webloom/storefront-backend/pkg/enums"
	"github.com/webloom/storefront-backend/pkg/logger"
	"github.com/webloom/storefront-backend/pkg/metrics"
	"github.com/webloom/storefront-backend/pkg/pagination"
	"github.com/webloom/storefront-backend/pkg/razorpay"
	pkgredis "github.com/webloom/storefront-backend/pkg/redis"
)

type memoryIdemStore struct {
	data map[string]string
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{data: make(map[string]string)}
}

func (m *memoryIdemStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	m.data[key] = str
	return true, nil
}

func (m *memoryIdemStore) IdempotencyKey(scope, id string) string {
	return "test:idem:" + scope + ":" + id
}

func (m *memoryIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(_ context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		Status:        enums.OrderStatusPending,
		PaymentMode:   input.PaymentMode,
		PaymentStatus: enums.PaymentStatusPending,
	}, nil
}

func (stubOrdersService) List(context.Context, pagination.Params) (*internalorders.OrderPage, error) {
	return &internalorders.OrderPage{Orders: []models.Order{{ID: uuid.New()}}, Total: 1}, nil
}

func (stubOrdersService) ListByUser(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) UpdateOrder(context.Context, uuid.UUID, internalorders.UpdateOrderInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

func (stubOrdersService) CreateGatewayOrder(_ context.Context, input internalorders.CreateGatewayOrderInput) (*razorpay.Order, error) {
	return &razorpay.Order{ID: "order_stub", Amount: input.AmountMinor, Currency: "INR", Status: "created"}, nil
}

func (stubOrdersService) VerifyGatewayPayment(context.Context, internalorders.VerifyPaymentInput) (bool, error) {
	return false, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test", Port: "0"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, registry *prometheus.Registry, store pkgredis.IdempotencyStore) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	flow, err := checkoutflow.NewFlow(stubOrdersService{}, "rzp_test_key", 0, logg)
	if err != nil {
		t.Fatalf("build flow: %v", err)
	}

	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		nil, // redis is optional
		store,
		registry,
		httpMetrics,
		stubOrdersService{},
		flow,
	)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	live := httptest.NewRecorder()
	router.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if live.Code != http.StatusOK {
		t.Fatalf("expected 200 for live got %d", live.Code)
	}
	if got := live.Header().Get("X-Storefront-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}

	ready := httptest.NewRecorder()
	router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if ready.Code != http.StatusOK {
		t.Fatalf("expected 200 for ready got %d", ready.Code)
	}
}

func TestOrderRoutesWired(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{
		"user_id": "` + uuid.NewString() + `",
		"items": [{"product_id": "` + uuid.NewString() + `", "name": "Desk lamp", "unit_price": "1299.00", "qty": 1}],
		"address": {"line1": "5 Crescent Row", "city": "Jaipur", "state": "RJ", "postal_code": "302001", "country": "IN"},
		"payment_mode": "cod",
		"total": "1299.00"
	}`
	create := httptest.NewRecorder()
	router.ServeHTTP(create, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", create.Code, create.Body.String())
	}

	list := httptest.NewRecorder()
	router.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", list.Code)
	}
	if got := list.Header().Get("X-Total-Count"); got != "1" {
		t.Fatalf("expected X-Total-Count 1 got %q", got)
	}

	verify := httptest.NewRecorder()
	verifyBody := `{"gateway_order_id": "order_stub", "gateway_payment_id": "pay_1", "gateway_signature": "ffff"}`
	router.ServeHTTP(verify, httptest.NewRequest(http.MethodPost, "/api/v1/orders/gateway/verify", strings.NewReader(verifyBody)))
	if verify.Code != http.StatusOK {
		t.Fatalf("expected 200 for verify got %d: %s", verify.Code, verify.Body.String())
	}
}

func TestIdempotentReplayThroughRouter(t *testing.T) {
	store := newMemoryIdemStore()
	router := newTestRouter(t, nil, store)

	body := `{
		"user_id": "` + uuid.NewString() + `",
		"items": [{"product_id": "` + uuid.NewString() + `", "name": "Desk lamp", "unit_price": "1299.00", "qty": 1}],
		"address": {"line1": "5 Crescent Row", "city": "Jaipur", "state": "RJ", "postal_code": "302001", "country": "IN"},
		"payment_mode": "cod",
		"total": "1299.00"
	}`

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "order-once")
	router.ServeHTTP(first, req)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	if len(store.data) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.data))
	}

	replay := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "order-once")
	router.ServeHTTP(replay, req)
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d: %s", replay.Code, replay.Body.String())
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("replay must return the original response\nfirst:  %s\nreplay: %s", first.Body.String(), replay.Body.String())
	}

	conflict := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(strings.Replace(body, "1299.00", "999.00", 1)))
	req.Header.Set("Idempotency-Key", "order-once")
	router.ServeHTTP(conflict, req)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for body change got %d", conflict.Code)
	}
}

func TestCheckoutRoutesWired(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	userID := uuid.NewString()
	begin := httptest.NewRecorder()
	beginBody := `{
		"user_id": "` + userID + `",
		"items": [{"product_id": "` + uuid.NewString() + `", "name": "Desk lamp", "unit_price": "1299.00", "qty": 1}],
		"address": {"line1": "5 Crescent Row", "city": "Jaipur", "state": "RJ", "postal_code": "302001", "country": "IN"},
		"payment_mode": "card",
		"total": "1299.00"
	}`
	router.ServeHTTP(begin, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/begin", strings.NewReader(beginBody)))
	if begin.Code != http.StatusCreated {
		t.Fatalf("expected 201 for begin got %d: %s", begin.Code, begin.Body.String())
	}

	current := httptest.NewRecorder()
	router.ServeHTTP(current, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/"+userID, nil))
	if current.Code != http.StatusOK {
		t.Fatalf("expected 200 for current got %d", current.Code)
	}

	submit := httptest.NewRecorder()
	router.ServeHTTP(submit, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(`{"user_id": "`+userID+`"}`)))
	if submit.Code != http.StatusOK {
		t.Fatalf("expected 200 for submit got %d: %s", submit.Code, submit.Body.String())
	}

	cancel := httptest.NewRecorder()
	router.ServeHTTP(cancel, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/cancel", strings.NewReader(`{"user_id": "`+userID+`"}`)))
	if cancel.Code != http.StatusOK {
		t.Fatalf("expected 200 for cancel got %d: %s", cancel.Code, cancel.Body.String())
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := newTestRouter(t, registry, nil)

	warm := httptest.NewRecorder()
	router.ServeHTTP(warm, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if warm.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", warm.Code)
	}

	scrape := httptest.NewRecorder()
	router.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if scrape.Code != http.StatusOK {
		t.Fatalf("expected 200 for scrape got %d", scrape.Code)
	}
	if !strings.Contains(scrape.Body.String(), "http_requests_total") {
		t.Fatalf("request counter missing from scrape:\n%s", scrape.Body.String())
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
