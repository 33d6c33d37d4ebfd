package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/payment"
	"github.com/medicstrading/madebuy-checkout/internal/shipping"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// memStock backs both the reservation manager's stock reader and the stock
// repository in tests
type memStock struct {
	mu        sync.Mutex
	committed map[string]int
}

func (s *memStock) GetCommitted(_ context.Context, sku string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed[sku], nil
}

func (s *memStock) SetCommitted(_ context.Context, sku string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed[sku] = quantity
	return nil
}

// memOrders is an in-memory order repository enforcing the same contracts as
// the Postgres one: unique payment reference, conditional stock decrement,
// all-or-nothing.
type memOrders struct {
	mu       sync.Mutex
	stock    *memStock
	byID     map[uuid.UUID]*domain.Order
	byRef    map[string]*domain.Order
	failNext error
}

func newMemOrders(stock *memStock) *memOrders {
	return &memOrders{
		stock: stock,
		byID:  make(map[uuid.UUID]*domain.Order),
		byRef: make(map[string]*domain.Order),
	}
}

func (m *memOrders) CreateWithStockDecrement(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}

	if _, exists := m.byRef[order.PaymentReference]; exists {
		return &errors.ErrDuplicatePaymentReference{Reference: order.PaymentReference}
	}

	m.stock.mu.Lock()
	defer m.stock.mu.Unlock()
	for _, line := range order.Lines {
		if m.stock.committed[line.SKU] < line.Quantity {
			return &errors.ErrInsufficientStock{SKU: line.SKU}
		}
	}
	for _, line := range order.Lines {
		m.stock.committed[line.SKU] -= line.Quantity
	}

	stored := *order
	m.byID[order.ID] = &stored
	m.byRef[order.PaymentReference] = &stored
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byID[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	snapshot := *order
	return &snapshot, nil
}

func (m *memOrders) GetByPaymentReference(_ context.Context, reference string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byRef[reference]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: reference}
	}
	snapshot := *order
	return &snapshot, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// mockRedirect implements RedirectProvider
type mockRedirect struct {
	mu          sync.Mutex
	createErr   error
	createCalls int
	session     payment.Session
	statusErr   error
	status      payment.SessionStatus
}

func (m *mockRedirect) CreateSession(_ context.Context, _ payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	snapshot := m.session
	return &snapshot, nil
}

func (m *mockRedirect) GetSessionStatus(_ context.Context, _ string) (*payment.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	snapshot := m.status
	return &snapshot, nil
}

// mockCapture implements CaptureProvider
type mockCapture struct {
	mu           sync.Mutex
	createErr    error
	order        payment.ProviderOrder
	captureErr   error
	captureCalls int
	result       payment.CaptureResult
}

func (m *mockCapture) CreateOrder(_ context.Context, _ payment.OrderRequest) (*payment.ProviderOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	snapshot := m.order
	return &snapshot, nil
}

func (m *mockCapture) Capture(_ context.Context, _ string) (*payment.CaptureResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureCalls++
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	snapshot := m.result
	return &snapshot, nil
}

// mockRates implements ShippingRates
type mockRates struct {
	quotes []domain.ShippingQuote
	err    error
}

func (m *mockRates) GetQuotes(_ context.Context, _ shipping.Destination, _ []domain.CartLine) ([]domain.ShippingQuote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.quotes, nil
}

var errProviderDown = fmt.Errorf("provider error: status 503, body: unavailable")

func newSession() payment.Session {
	return payment.Session{ID: "sess_101", RedirectURL: "https://pay.example/s/sess_101"}
}

func paidStatus(reference string) payment.SessionStatus {
	return payment.SessionStatus{Paid: true, Reference: reference}
}

func unpaidStatus() payment.SessionStatus {
	return payment.SessionStatus{Paid: false}
}

func newProviderOrder(id string) payment.ProviderOrder {
	return payment.ProviderOrder{ID: id, Status: "CREATED"}
}

func capturedResult(reference string) payment.CaptureResult {
	return payment.CaptureResult{Captured: true, Reference: reference}
}

func failedCapture() payment.CaptureResult {
	return payment.CaptureResult{Captured: false}
}

func declinedCaptureErr() error {
	return fmt.Errorf("failed to capture provider order: %w",
		&payment.StatusError{Provider: "capture", Code: http.StatusPaymentRequired, Body: "card_declined"})
}
