package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

type storeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *sql.DB, logger *zap.Logger) *storeRepository {
	return &storeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *storeRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Store, error) {
	// bcrypt hashes are salted, so there is no direct lookup; iterate active
	// stores and verify the key against each hash.
	query := `
		SELECT id, name, api_key_hash, is_active, created_at, updated_at
		FROM stores
		WHERE is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query stores", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var store domain.Store
		err := rows.Scan(
			&store.ID,
			&store.Name,
			&store.APIKeyHash,
			&store.IsActive,
			&store.CreatedAt,
			&store.UpdatedAt,
		)
		if err != nil {
			continue
		}

		if err := bcrypt.CompareHashAndPassword([]byte(store.APIKeyHash), []byte(apiKey)); err == nil {
			return &store, nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *storeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	query := `
		SELECT id, name, api_key_hash, is_active, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	var store domain.Store
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&store.ID,
		&store.Name,
		&store.APIKeyHash,
		&store.IsActive,
		&store.CreatedAt,
		&store.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "store", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get store by ID", zap.Error(err))
		return nil, err
	}

	return &store, nil
}

func (r *storeRepository) Create(ctx context.Context, store *domain.Store) error {
	query := `
		INSERT INTO stores (id, name, api_key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now()
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	if store.UpdatedAt.IsZero() {
		store.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		store.ID,
		store.Name,
		store.APIKeyHash,
		store.IsActive,
		store.CreatedAt,
		store.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create store", zap.Error(err))
		return err
	}

	return nil
}
