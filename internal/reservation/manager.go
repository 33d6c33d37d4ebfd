package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// DefaultTTL is how long a hold stays valid while the buyer completes the
// external payment flow.
const DefaultTTL = 15 * time.Minute

// terminalGrace is how long released and expired holds stay readable past
// their deadline. Late provider callbacks within the window get a precise
// error instead of "unknown token"; after it the entry is evicted so the
// table stays bounded in a long-running process.
const terminalGrace = time.Hour

// StockReader reports committed stock per SKU
type StockReader interface {
	GetCommitted(ctx context.Context, sku string) (int, error)
}

// Manager issues time-bounded holds on stock. Available headroom per SKU is
// committed stock minus the quantities held by active reservations; the
// check-and-hold runs under one mutex so two concurrent reservations can
// never both win the same last unit.
//
// Expiry is lazy: every read of a held token past its deadline treats it as
// expired before any other check runs. There is no background sweeper.
type Manager struct {
	mu           sync.Mutex
	stock        StockReader
	ttl          time.Duration
	logger       *zap.Logger
	reservations map[string]*domain.Reservation

	now func() time.Time // overridable in tests
}

// NewManager creates a reservation manager. A ttl of zero falls back to
// DefaultTTL.
func NewManager(stock StockReader, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		stock:        stock,
		ttl:          ttl,
		logger:       logger,
		reservations: make(map[string]*domain.Reservation),
		now:          time.Now,
	}
}

// Reserve atomically checks headroom for the intent and, if everything
// fits, creates a held reservation with a TTL. On the first under-stocked
// SKU (in line order) it fails with ErrInsufficientStock naming that SKU.
func (m *Manager) Reserve(ctx context.Context, intent domain.CheckoutIntent) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked()

	// A cart may carry several lines of the same SKU (same product with
	// different personalization), so quantities are aggregated per SKU
	// before the headroom check; lines must never be checked one by one
	// against the same untouched headroom.
	requested := make(map[string]int, len(intent.Lines))
	skus := make([]string, 0, len(intent.Lines))
	for _, line := range intent.Lines {
		if _, seen := requested[line.SKU]; !seen {
			skus = append(skus, line.SKU)
		}
		requested[line.SKU] += line.Quantity
	}

	// First pass: every SKU's total must fit within committed minus active holds
	for _, sku := range skus {
		committed, err := m.stock.GetCommitted(ctx, sku)
		if err != nil {
			return nil, err
		}
		if committed-m.heldQuantityLocked(sku) < requested[sku] {
			return nil, &errors.ErrInsufficientStock{SKU: sku}
		}
	}

	now := m.now()
	res := &domain.Reservation{
		Token:     uuid.New().String(),
		StoreID:   intent.StoreID,
		Intent:    intent,
		State:     domain.ReservationStateHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.reservations[res.Token] = res

	m.logger.Info("Stock reserved",
		zap.String("token", res.Token),
		zap.String("store_id", intent.StoreID.String()),
		zap.Time("expires_at", res.ExpiresAt),
	)

	snapshot := *res
	return &snapshot, nil
}

// Consume is the exactly-once gate for order finalization. On the first call
// for a held token it transitions to consumed and returns the reservation
// data; later calls report ErrAlreadyConsumed so the caller can replay the
// existing order instead of creating a second one.
func (m *Manager) Consume(token string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[token]
	if !ok {
		return nil, &errors.ErrTokenInvalid{Token: token, Reason: "unknown token"}
	}

	switch m.stateLocked(res) {
	case domain.ReservationStateExpired:
		return nil, &errors.ErrReservationExpired{Token: token}
	case domain.ReservationStateReleased:
		return nil, &errors.ErrTokenInvalid{Token: token, Reason: "reservation was released"}
	case domain.ReservationStateConsumed:
		return nil, &errors.ErrAlreadyConsumed{Token: token}
	}

	res.State = domain.ReservationStateConsumed
	m.logger.Info("Reservation consumed", zap.String("token", token))

	snapshot := *res
	return &snapshot, nil
}

// Release transitions a held reservation to released, freeing its headroom.
// Idempotent: releasing an already-terminal reservation is a no-op. An
// unknown token reports ErrTokenInvalid so callers can log it.
func (m *Manager) Release(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[token]
	if !ok {
		return &errors.ErrTokenInvalid{Token: token, Reason: "unknown token"}
	}

	if m.stateLocked(res).IsTerminal() {
		return nil
	}

	res.State = domain.ReservationStateReleased
	m.logger.Info("Reservation released", zap.String("token", token))
	return nil
}

// Reinstate moves a consumed reservation back to held. Only for the order
// finalizer: if order persistence fails after consumption, the hold must be
// restored so the headroom accounting stays correct.
func (m *Manager) Reinstate(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[token]
	if !ok {
		return &errors.ErrTokenInvalid{Token: token, Reason: "unknown token"}
	}
	if res.State != domain.ReservationStateConsumed {
		return &errors.ErrInvalidStateTransition{
			From: string(res.State),
			To:   string(domain.ReservationStateHeld),
		}
	}

	res.State = domain.ReservationStateHeld
	m.logger.Warn("Reservation reinstated after failed finalization", zap.String("token", token))
	return nil
}

// Settle drops a consumed reservation once its quantities have been
// committed against real stock. From here on the hold no longer counts
// toward headroom; replay detection falls to the orders table's unique
// payment reference.
func (m *Manager) Settle(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[token]
	if !ok {
		return
	}
	if res.State != domain.ReservationStateConsumed {
		m.logger.Warn("Settle called on non-consumed reservation",
			zap.String("token", token),
			zap.String("state", string(res.State)),
		)
		return
	}
	delete(m.reservations, token)
}

// Get returns a snapshot of a reservation, applying lazy expiry first
func (m *Manager) Get(token string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[token]
	if !ok {
		return nil, &errors.ErrTokenInvalid{Token: token, Reason: "unknown token"}
	}
	m.stateLocked(res)

	snapshot := *res
	return &snapshot, nil
}

// HeldQuantity returns the total quantity currently held for a SKU across
// active reservations. Used by the stock admin surface to report headroom.
func (m *Manager) HeldQuantity(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldQuantityLocked(sku)
}

// heldQuantityLocked sums quantities over active holds for one SKU.
// Consumed reservations still count: their quantity is not moved to real
// stock until the finalizer's transaction commits and Settle runs.
func (m *Manager) heldQuantityLocked(sku string) int {
	total := 0
	for _, res := range m.reservations {
		switch m.stateLocked(res) {
		case domain.ReservationStateHeld, domain.ReservationStateConsumed:
			total += res.HeldQuantity(sku)
		}
	}
	return total
}

// sweepLocked evicts released and expired holds whose deadline is more than
// terminalGrace in the past. Consumed holds are never swept: only Settle or
// Reinstate may resolve them, since their stock may already be paid for.
func (m *Manager) sweepLocked() {
	cutoff := m.now().Add(-terminalGrace)
	for token, res := range m.reservations {
		switch m.stateLocked(res) {
		case domain.ReservationStateReleased, domain.ReservationStateExpired:
			if res.ExpiresAt.Before(cutoff) {
				delete(m.reservations, token)
			}
		}
	}
}

// stateLocked applies lazy expiry before reporting the state. Any read of a
// held reservation past its deadline flips it to expired first.
func (m *Manager) stateLocked(res *domain.Reservation) domain.ReservationState {
	if res.State == domain.ReservationStateHeld && m.now().After(res.ExpiresAt) {
		res.State = domain.ReservationStateExpired
		m.logger.Info("Reservation expired", zap.String("token", res.Token))
	}
	return res.State
}
