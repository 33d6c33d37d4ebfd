package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/config"
	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/payment"
	"github.com/medicstrading/madebuy-checkout/internal/repository"
	"github.com/medicstrading/madebuy-checkout/internal/reservation"
	"github.com/medicstrading/madebuy-checkout/internal/service"
	"github.com/medicstrading/madebuy-checkout/internal/shipping"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

type stubStock struct{ committed map[string]int }

func (s *stubStock) GetCommitted(_ context.Context, sku string) (int, error) {
	return s.committed[sku], nil
}

func (s *stubStock) SetCommitted(_ context.Context, sku string, quantity int) error {
	s.committed[sku] = quantity
	return nil
}

type stubOrders struct {
	byRef map[string]*domain.Order
}

func (s *stubOrders) CreateWithStockDecrement(_ context.Context, order *domain.Order) error {
	if _, exists := s.byRef[order.PaymentReference]; exists {
		return &errors.ErrDuplicatePaymentReference{Reference: order.PaymentReference}
	}
	stored := *order
	s.byRef[order.PaymentReference] = &stored
	return nil
}

func (s *stubOrders) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, order := range s.byRef {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
}

func (s *stubOrders) GetByPaymentReference(_ context.Context, reference string) (*domain.Order, error) {
	order, ok := s.byRef[reference]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: reference}
	}
	return order, nil
}

type stubRedirect struct{}

func (stubRedirect) CreateSession(_ context.Context, _ payment.SessionRequest) (*payment.Session, error) {
	return &payment.Session{ID: "sess_1", RedirectURL: "https://pay.example/s/sess_1"}, nil
}

func (stubRedirect) GetSessionStatus(_ context.Context, _ string) (*payment.SessionStatus, error) {
	return &payment.SessionStatus{Paid: true, Reference: "pay_1"}, nil
}

type stubCapture struct{}

func (stubCapture) CreateOrder(_ context.Context, _ payment.OrderRequest) (*payment.ProviderOrder, error) {
	return &payment.ProviderOrder{ID: "po_1", Status: "CREATED"}, nil
}

func (stubCapture) Capture(_ context.Context, _ string) (*payment.CaptureResult, error) {
	return &payment.CaptureResult{Captured: true, Reference: "cap_1"}, nil
}

type stubRates struct{}

func (stubRates) GetQuotes(_ context.Context, _ shipping.Destination, _ []domain.CartLine) ([]domain.ShippingQuote, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, committed map[string]int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stock := &stubStock{committed: committed}
	repos := &repository.Repositories{
		Stock: stock,
		Order: &stubOrders{byRef: make(map[string]*domain.Order)},
	}
	mgr := reservation.NewManager(stock, time.Minute, zap.NewNop())

	cfg := config.CheckoutConfig{
		ProviderRetries: 0,
		RetryDelay:      time.Millisecond,
		SuccessURL:      "https://shop.example/success",
		CancelURL:       "https://shop.example/cancel",
		Currency:        "EUR",
	}
	svc := service.NewCheckoutService(mgr, repos, stubRedirect{}, stubCapture{}, stubRates{}, cfg, zap.NewNop())

	store := &domain.Store{ID: uuid.New(), Name: "Test Store", IsActive: true}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("store", store)
		c.Next()
	})
	router.POST("/v1/checkout/redirect", HandleBeginRedirectCheckout(svc, zap.NewNop()))
	router.POST("/v1/checkout/capture", HandleBeginCaptureCheckout(svc, zap.NewNop()))
	router.POST("/v1/checkout/capture/:id/complete", HandleCompleteCaptureCheckout(svc, zap.NewNop()))
	return router
}

const digitalCartBody = `{
	"items": [{"sku": "ebook-1", "title": "Field Guide", "quantity": 1, "unit_price": 2000}],
	"customer": {"name": "Ada Byron", "email": "ada@example.com"}
}`

const physicalCartBody = `{
	"items": [{"sku": "ring-7", "title": "Signet Ring", "quantity": 1, "unit_price": 15000, "requires_shipping": true}],
	"customer": {"name": "Ada Byron", "email": "ada@example.com"}
}`

func TestHandleBeginRedirectCheckout_Success(t *testing.T) {
	router := newTestRouter(t, map[string]int{"ebook-1": 5})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/redirect", strings.NewReader(digitalCartBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://pay.example/s/sess_1")
}

func TestHandleBeginRedirectCheckout_InsufficientStock(t *testing.T) {
	router := newTestRouter(t, map[string]int{"ebook-1": 0})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/redirect", strings.NewReader(digitalCartBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ebook-1")
}

func TestHandleBeginRedirectCheckout_ShippingRequired(t *testing.T) {
	router := newTestRouter(t, map[string]int{"ring-7": 5})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/redirect", strings.NewReader(physicalCartBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "shipping")
}

func TestHandleBeginRedirectCheckout_ValidationFailure(t *testing.T) {
	router := newTestRouter(t, map[string]int{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/redirect", strings.NewReader(`{"items": []}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleCompleteCaptureCheckout_FullFlow(t *testing.T) {
	router := newTestRouter(t, map[string]int{"ebook-1": 5})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/capture", strings.NewReader(digitalCartBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "po_1")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/checkout/capture/po_1/complete", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cap_1")
	assert.Contains(t, w.Body.String(), `"grand_total":2000`)
}

func TestHandleCompleteCaptureCheckout_UnknownID(t *testing.T) {
	router := newTestRouter(t, map[string]int{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/capture/po_unknown/complete", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}
