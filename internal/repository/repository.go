package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
)

// StoreRepository manages tenant storefronts
type StoreRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Store, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Store, error)
	Create(ctx context.Context, store *domain.Store) error
}

// StockRepository manages committed stock per SKU. Committed stock is what
// the warehouse actually has; holds on top of it live in the reservation
// manager. Decrements happen inside the order-creation transaction, not here.
type StockRepository interface {
	GetCommitted(ctx context.Context, sku string) (int, error)
	SetCommitted(ctx context.Context, sku string, quantity int) error
}

// OrderRepository persists finalized orders. CreateWithStockDecrement inserts
// the order and decrements committed stock for every line in one transaction;
// both happen or neither.
type OrderRepository interface {
	CreateWithStockDecrement(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)
}

// Repositories bundles all repositories
type Repositories struct {
	Store StoreRepository
	Stock StockRepository
	Order OrderRepository
}
