package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

type stubStock struct {
	mu        sync.Mutex
	committed map[string]int
}

func (s *stubStock) GetCommitted(_ context.Context, sku string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed[sku], nil
}

func newTestManager(committed map[string]int) (*Manager, *stubStock) {
	stock := &stubStock{committed: committed}
	return NewManager(stock, DefaultTTL, zap.NewNop()), stock
}

func intentFor(sku string, qty int) domain.CheckoutIntent {
	return domain.CheckoutIntent{
		StoreID: uuid.New(),
		Lines: []domain.CartLine{
			{SKU: sku, Title: sku, Quantity: qty, UnitPrice: 1000},
		},
	}
}

func TestManager_ReserveAndConsume(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 5})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 2))
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStateHeld, res.State)
	assert.NotEmpty(t, res.Token)

	consumed, err := mgr.Consume(res.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStateConsumed, consumed.State)
	assert.Equal(t, 2, consumed.HeldQuantity("ring-7"))
}

func TestManager_ReserveInsufficientStock(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	_, err := mgr.Reserve(context.Background(), intentFor("ring-7", 2))

	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "ring-7", stockErr.SKU)
}

func TestManager_ReserveAggregatesRepeatedSKULines(t *testing.T) {
	// Same product twice with different personalization: both lines compete
	// for the same headroom and must be counted together
	intent := domain.CheckoutIntent{
		StoreID: uuid.New(),
		Lines: []domain.CartLine{
			{SKU: "ring-7", Title: "Signet Ring", Quantity: 1, UnitPrice: 15000, PersonalizationSurcharge: 500},
			{SKU: "ring-7", Title: "Signet Ring", Quantity: 1, UnitPrice: 15000, PersonalizationSurcharge: 700},
		},
	}

	mgr, _ := newTestManager(map[string]int{"ring-7": 1})
	_, err := mgr.Reserve(context.Background(), intent)
	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "ring-7", stockErr.SKU)
	assert.Equal(t, 0, mgr.HeldQuantity("ring-7"))

	mgr, _ = newTestManager(map[string]int{"ring-7": 2})
	res, err := mgr.Reserve(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, 2, res.HeldQuantity("ring-7"))
	assert.Equal(t, 2, mgr.HeldQuantity("ring-7"))
}

func TestManager_NoOversellUnderConcurrency(t *testing.T) {
	const available = 5
	mgr, _ := newTestManager(map[string]int{"ring-7": available})

	var wg sync.WaitGroup
	results := make(chan error, available+1)
	for i := 0; i < available+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, failures := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *errors.ErrInsufficientStock
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "ring-7", stockErr.SKU)
		failures++
	}

	assert.Equal(t, available, successes)
	assert.Equal(t, 1, failures)
}

func TestManager_ConsumeIsExactlyOnce(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	_, err = mgr.Consume(res.Token)
	require.NoError(t, err)

	_, err = mgr.Consume(res.Token)
	var consumedErr *errors.ErrAlreadyConsumed
	require.ErrorAs(t, err, &consumedErr)
	assert.Equal(t, res.Token, consumedErr.Token)
}

func TestManager_ConcurrentConsumeSingleWinner(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Consume(res.Token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			var consumedErr *errors.ErrAlreadyConsumed
			require.ErrorAs(t, err, &consumedErr)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	require.NoError(t, mgr.Release(res.Token))
	require.NoError(t, mgr.Release(res.Token))

	got, err := mgr.Get(res.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStateReleased, got.State)

	// Released tokens must not be consumable
	_, err = mgr.Consume(res.Token)
	var invalidErr *errors.ErrTokenInvalid
	require.ErrorAs(t, err, &invalidErr)
}

func TestManager_ReleaseFreesHeadroom(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	first, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	_, err = mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)

	require.NoError(t, mgr.Release(first.Token))

	_, err = mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)
}

func TestManager_ExpiryFreesStockAndBlocksConsume(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	first, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	// Abandoned checkout: jump past the TTL
	mgr.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	// A fresh reserve for the same quantity succeeds, the first hold expired
	_, err = mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	// The expired token must never be consumable
	_, err = mgr.Consume(first.Token)
	var expiredErr *errors.ErrReservationExpired
	require.ErrorAs(t, err, &expiredErr)
}

func TestManager_UnknownTokenInvalid(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{})

	_, err := mgr.Consume("no-such-token")
	var invalidErr *errors.ErrTokenInvalid
	require.ErrorAs(t, err, &invalidErr)

	err = mgr.Release("no-such-token")
	require.ErrorAs(t, err, &invalidErr)
}

func TestManager_ReinstateRestoresHold(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	_, err = mgr.Consume(res.Token)
	require.NoError(t, err)

	// A consumed hold still counts against headroom until settled
	_, err = mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)

	require.NoError(t, mgr.Reinstate(res.Token))

	// A reinstated hold can be consumed again by the retrying finalizer
	_, err = mgr.Consume(res.Token)
	require.NoError(t, err)
}

func TestManager_SettleDropsHold(t *testing.T) {
	mgr, stock := newTestManager(map[string]int{"ring-7": 1})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	_, err = mgr.Consume(res.Token)
	require.NoError(t, err)

	// Finalizer committed the order transaction: stock decremented, hold settled
	stock.mu.Lock()
	stock.committed["ring-7"] = 0
	stock.mu.Unlock()
	mgr.Settle(res.Token)

	assert.Equal(t, 0, mgr.HeldQuantity("ring-7"))

	// The settled token is gone; a replay sees an invalid token and must fall
	// back to looking the order up by payment reference
	_, err = mgr.Consume(res.Token)
	var invalidErr *errors.ErrTokenInvalid
	require.ErrorAs(t, err, &invalidErr)
}

func TestManager_SweepEvictsStaleTerminalHolds(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 2})

	released, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)
	require.NoError(t, mgr.Release(released.Token))

	abandoned, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	// Long past the TTL and the retention window
	mgr.now = func() time.Time { return time.Now().Add(DefaultTTL + terminalGrace + time.Minute) }

	// Any reserve sweeps stale terminal holds out of the table
	_, err = mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	var invalidErr *errors.ErrTokenInvalid
	_, err = mgr.Get(released.Token)
	require.ErrorAs(t, err, &invalidErr)
	_, err = mgr.Get(abandoned.Token)
	require.ErrorAs(t, err, &invalidErr)
}

func TestManager_ReinstateOnlyFromConsumed(t *testing.T) {
	mgr, _ := newTestManager(map[string]int{"ring-7": 1})

	res, err := mgr.Reserve(context.Background(), intentFor("ring-7", 1))
	require.NoError(t, err)

	err = mgr.Reinstate(res.Token)
	var transitionErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transitionErr)
}
