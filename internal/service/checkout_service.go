package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/checkout"
	"github.com/medicstrading/madebuy-checkout/internal/config"
	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/payment"
	"github.com/medicstrading/madebuy-checkout/internal/repository"
	"github.com/medicstrading/madebuy-checkout/internal/reservation"
	"github.com/medicstrading/madebuy-checkout/internal/shipping"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// reservationTokenKey is the metadata key carrying the reservation token
// through the hosted payment session.
const reservationTokenKey = "reservation_token"

// RedirectProvider is the redirect-style payment provider (hosted session)
type RedirectProvider interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	GetSessionStatus(ctx context.Context, sessionRef string) (*payment.SessionStatus, error)
}

// CaptureProvider is the approve/capture-style payment provider
type CaptureProvider interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.ProviderOrder, error)
	Capture(ctx context.Context, providerOrderID string) (*payment.CaptureResult, error)
}

// ShippingRates is the shipping-rate provider
type ShippingRates interface {
	GetQuotes(ctx context.Context, dest shipping.Destination, lines []domain.CartLine) ([]domain.ShippingQuote, error)
}

// CheckoutService orchestrates the two payment flows over one reservation
// manager and one order finalizer. It holds no long-lived state about a
// checkout beyond the reservation itself plus a small correlation table
// mapping provider references back to reservation tokens across the external
// suspension points.
type CheckoutService struct {
	reservations *reservation.Manager
	repos        *repository.Repositories
	redirect     RedirectProvider
	capture      CaptureProvider
	rates        ShippingRates
	cfg          config.CheckoutConfig
	logger       *zap.Logger

	mu              sync.Mutex
	pendingSessions map[string]string // sessionRef -> reservation token
	pendingCaptures map[string]string // providerOrderID -> reservation token
}

// NewCheckoutService creates the checkout orchestrator
func NewCheckoutService(
	reservations *reservation.Manager,
	repos *repository.Repositories,
	redirect RedirectProvider,
	capture CaptureProvider,
	rates ShippingRates,
	cfg config.CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		reservations:    reservations,
		repos:           repos,
		redirect:        redirect,
		capture:         capture,
		rates:           rates,
		cfg:             cfg,
		logger:          logger,
		pendingSessions: make(map[string]string),
		pendingCaptures: make(map[string]string),
	}
}

// GetShippingQuotes returns carrier options for the physical lines of a cart
func (s *CheckoutService) GetShippingQuotes(ctx context.Context, req QuotesRequest) ([]domain.ShippingQuote, error) {
	lines := CheckoutRequest{Items: req.Items}.cartLines()
	_, shippingRequired := checkout.Classify(lines)
	if !shippingRequired {
		return nil, nil
	}

	dest := shipping.Destination{
		Street:     req.Destination.Street,
		City:       req.Destination.City,
		PostalCode: req.Destination.PostalCode,
		Country:    req.Destination.Country,
	}
	return s.rates.GetQuotes(ctx, dest, lines)
}

// GetOrder returns an order scoped to the requesting store
func (s *CheckoutService) GetOrder(ctx context.Context, storeID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.StoreID != storeID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID.String()}
	}
	return order, nil
}

// buildIntent validates the request, classifies shipping needs, computes
// totals and produces the checkout intent handed to a coordinator. Empty
// carts and physical carts without a shipping selection are rejected here,
// before anything is reserved.
func (s *CheckoutService) buildIntent(storeID uuid.UUID, req CheckoutRequest) (domain.CheckoutIntent, error) {
	lines := req.cartLines()
	if len(lines) == 0 {
		return domain.CheckoutIntent{}, &errors.ErrEmptyCart{}
	}

	quote := req.shippingQuote()
	totals, err := checkout.Totalize(lines, quote)
	if err != nil {
		return domain.CheckoutIntent{}, err
	}

	_, shippingRequired := checkout.Classify(lines)
	if !shippingRequired {
		// Digital-only carts carry no shipping selection even if one was sent
		quote = nil
	}

	return domain.CheckoutIntent{
		StoreID:  storeID,
		Lines:    lines,
		Customer: req.customer(),
		Shipping: quote,
		Totals:   totals,
	}, nil
}

// paymentItems converts intent lines to provider line items
func paymentItems(intent domain.CheckoutIntent) []payment.Item {
	items := make([]payment.Item, 0, len(intent.Lines))
	for _, line := range intent.Lines {
		items = append(items, payment.Item{
			SKU:       line.SKU,
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice + line.PersonalizationSurcharge,
		})
	}
	return items
}

// withRetry runs a provider call with a bounded retry budget. Transient
// failures are retried before the caller gives up and releases the
// reservation; this avoids dropping a hold over a brief provider hiccup.
func (s *CheckoutService) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.ProviderRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("Retrying provider call",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// releaseQuietly releases a reservation, logging instead of propagating any
// error: release failures must not mask the error that caused the release.
func (s *CheckoutService) releaseQuietly(token string) {
	if err := s.reservations.Release(token); err != nil {
		s.logger.Error("Failed to release reservation", zap.String("token", token), zap.Error(err))
	}
}

// pruneCorrelations drops correlation entries whose reservation the manager
// no longer tracks (settled or evicted). Runs at the start of every checkout
// so both tables stay bounded in a long-running process; entries for live or
// recently-terminal reservations are kept so late callbacks still resolve.
func (s *CheckoutService) pruneCorrelations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, token := range s.pendingSessions {
		if _, err := s.reservations.Get(token); err != nil {
			delete(s.pendingSessions, ref)
		}
	}
	for ref, token := range s.pendingCaptures {
		if _, err := s.reservations.Get(token); err != nil {
			delete(s.pendingCaptures, ref)
		}
	}
}
