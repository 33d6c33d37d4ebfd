package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

type stockRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *sql.DB, logger *zap.Logger) *stockRepository {
	return &stockRepository{
		db:     db,
		logger: logger,
	}
}

// GetCommitted returns committed stock for a SKU. An unknown SKU reads as
// zero, which makes any reservation against it fail as insufficient.
func (r *stockRepository) GetCommitted(ctx context.Context, sku string) (int, error) {
	query := `SELECT committed FROM stock WHERE sku = $1`

	var committed int
	err := r.db.QueryRowContext(ctx, query, sku).Scan(&committed)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Failed to get committed stock", zap.String("sku", sku), zap.Error(err))
		return 0, err
	}

	return committed, nil
}

func (r *stockRepository) SetCommitted(ctx context.Context, sku string, quantity int) error {
	query := `
		INSERT INTO stock (sku, committed)
		VALUES ($1, $2)
		ON CONFLICT (sku) DO UPDATE SET committed = EXCLUDED.committed
	`

	_, err := r.db.ExecContext(ctx, query, sku, quantity)
	if err != nil {
		r.logger.Error("Failed to set committed stock", zap.String("sku", sku), zap.Error(err))
		return err
	}

	return nil
}
