package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

// CreateWithStockDecrement inserts the order, its lines, and decrements
// committed stock for every line in one transaction. The conditional
// UPDATE (committed >= quantity) is the last line of defense against
// oversell; the unique index on payment_reference is the last line of
// defense against duplicate finalization.
func (r *orderRepository) CreateWithStockDecrement(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	orderQuery := `
		INSERT INTO orders (
			id, store_id, subtotal, shipping_cost, grand_total,
			customer_name, customer_email, customer_phone,
			shipping_carrier, shipping_service, shipping_price,
			shipping_days_min, shipping_days_max,
			payment_reference, reservation_token, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	var carrier, service *string
	var shippingPrice *int64
	var daysMin, daysMax *int
	if order.Shipping != nil {
		carrier = &order.Shipping.Carrier
		service = &order.Shipping.Service
		shippingPrice = &order.Shipping.PriceMinorUnits
		daysMin = &order.Shipping.EstimatedDaysMin
		daysMax = &order.Shipping.EstimatedDaysMax
	}

	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID,
		order.StoreID,
		order.Totals.Subtotal,
		order.Totals.ShippingCost,
		order.Totals.GrandTotal,
		order.Customer.Name,
		order.Customer.Email,
		order.Customer.Phone,
		carrier,
		service,
		shippingPrice,
		daysMin,
		daysMax,
		order.PaymentReference,
		order.ReservationToken,
		order.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return &errors.ErrDuplicatePaymentReference{Reference: order.PaymentReference}
		}
		r.logger.Error("Failed to insert order", zap.Error(err))
		return err
	}

	lineQuery := `
		INSERT INTO order_lines (
			order_id, sku, title, quantity, unit_price,
			personalization_surcharge, requires_shipping
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	decrementQuery := `
		UPDATE stock
		SET committed = committed - $2
		WHERE sku = $1 AND committed >= $2
	`

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, lineQuery,
			order.ID,
			line.SKU,
			line.Title,
			line.Quantity,
			line.UnitPrice,
			line.PersonalizationSurcharge,
			line.RequiresShipping,
		)
		if err != nil {
			r.logger.Error("Failed to insert order line", zap.String("sku", line.SKU), zap.Error(err))
			return err
		}

		result, err := tx.ExecContext(ctx, decrementQuery, line.SKU, line.Quantity)
		if err != nil {
			r.logger.Error("Failed to decrement stock", zap.String("sku", line.SKU), zap.Error(err))
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return &errors.ErrInsufficientStock{SKU: line.SKU}
		}
	}

	return tx.Commit()
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *orderRepository) GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	return r.getOne(ctx, `WHERE payment_reference = $1`, reference)
}

func (r *orderRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Order, error) {
	query := `
		SELECT id, store_id, subtotal, shipping_cost, grand_total,
			customer_name, customer_email, customer_phone,
			shipping_carrier, shipping_service, shipping_price,
			shipping_days_min, shipping_days_max,
			payment_reference, reservation_token, created_at
		FROM orders
	` + where

	var order domain.Order
	var phone sql.NullString
	var carrier, service sql.NullString
	var shippingPrice sql.NullInt64
	var daysMin, daysMax sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&order.ID,
		&order.StoreID,
		&order.Totals.Subtotal,
		&order.Totals.ShippingCost,
		&order.Totals.GrandTotal,
		&order.Customer.Name,
		&order.Customer.Email,
		&phone,
		&carrier,
		&service,
		&shippingPrice,
		&daysMin,
		&daysMax,
		&order.PaymentReference,
		&order.ReservationToken,
		&order.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: argString(arg)}
	}
	if err != nil {
		r.logger.Error("Failed to get order", zap.Error(err))
		return nil, err
	}

	if phone.Valid {
		order.Customer.Phone = &phone.String
	}
	if carrier.Valid {
		order.Shipping = &domain.ShippingQuote{
			Carrier:          carrier.String,
			Service:          service.String,
			PriceMinorUnits:  shippingPrice.Int64,
			EstimatedDaysMin: int(daysMin.Int64),
			EstimatedDaysMax: int(daysMax.Int64),
		}
	}

	lines, err := r.getLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

func (r *orderRepository) getLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `
		SELECT sku, title, quantity, unit_price, personalization_surcharge, requires_shipping
		FROM order_lines
		WHERE order_id = $1
		ORDER BY sku
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order lines", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		err := rows.Scan(
			&line.SKU,
			&line.Title,
			&line.Quantity,
			&line.UnitPrice,
			&line.PersonalizationSurcharge,
			&line.RequiresShipping,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func argString(arg interface{}) string {
	switch v := arg.(type) {
	case string:
		return v
	case uuid.UUID:
		return v.String()
	default:
		return ""
	}
}
