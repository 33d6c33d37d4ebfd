package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// finalize is the shared terminal step of both payment flows: consume the
// reservation, persist the order and decrement committed stock in one
// transaction, then settle the hold.
//
// Idempotency: the reservation's consumed transition is the primary gate;
// the unique payment_reference index is the backstop. A replay (duplicate
// webhook, double-click) takes the already-consumed or already-settled path
// and returns the original order instead of creating a second one.
func (s *CheckoutService) finalize(ctx context.Context, token, paymentReference string) (*domain.Order, error) {
	res, err := s.reservations.Consume(token)
	if err != nil {
		switch err.(type) {
		case *errors.ErrAlreadyConsumed:
			// A concurrent finalize won the race or the order already exists
			return s.existingOrder(ctx, token, paymentReference)
		case *errors.ErrTokenInvalid:
			// A settled token is gone from the manager; if an order exists
			// for this payment the replay already succeeded
			if order, lookupErr := s.repos.Order.GetByPaymentReference(ctx, paymentReference); lookupErr == nil {
				s.logger.Info("Duplicate finalization replayed",
					zap.String("token", token),
					zap.String("payment_reference", paymentReference),
				)
				return order, nil
			}
			s.logger.Error("Finalize called with invalid token",
				zap.String("token", token),
				zap.Error(err),
			)
			return nil, err
		default:
			return nil, err
		}
	}

	order := orderFromReservation(res, paymentReference)
	if err := s.repos.Order.CreateWithStockDecrement(ctx, order); err != nil {
		if _, ok := err.(*errors.ErrDuplicatePaymentReference); ok {
			// Another path already persisted this payment; hand back its order
			s.reservations.Settle(token)
			return s.existingOrder(ctx, token, paymentReference)
		}
		// Persistence failed: restore the hold so headroom stays correct,
		// then surface the failure. The buyer is never shown success here.
		if reinstateErr := s.reservations.Reinstate(token); reinstateErr != nil {
			s.logger.Error("Failed to reinstate reservation", zap.String("token", token), zap.Error(reinstateErr))
		}
		s.logger.Error("Failed to persist order",
			zap.String("token", token),
			zap.String("payment_reference", paymentReference),
			zap.Error(err),
		)
		return nil, err
	}

	s.reservations.Settle(token)

	s.logger.Info("Order finalized",
		zap.String("order_id", order.ID.String()),
		zap.String("store_id", order.StoreID.String()),
		zap.String("payment_reference", paymentReference),
		zap.Int64("grand_total", order.Totals.GrandTotal),
	)

	return order, nil
}

func (s *CheckoutService) existingOrder(ctx context.Context, token, paymentReference string) (*domain.Order, error) {
	order, err := s.repos.Order.GetByPaymentReference(ctx, paymentReference)
	if err != nil {
		// Consumed but not yet visible: a concurrent finalize is between
		// consume and commit. Surfacing the error lets the caller retry;
		// it must never mint a second order.
		s.logger.Error("Consumed reservation but no order found for payment",
			zap.String("token", token),
			zap.String("payment_reference", paymentReference),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Duplicate finalization replayed",
		zap.String("token", token),
		zap.String("payment_reference", paymentReference),
	)
	return order, nil
}

func orderFromReservation(res *domain.Reservation, paymentReference string) *domain.Order {
	lines := make([]domain.OrderLine, 0, len(res.Intent.Lines))
	for _, line := range res.Intent.Lines {
		lines = append(lines, domain.OrderLine{
			SKU:                      line.SKU,
			Title:                    line.Title,
			Quantity:                 line.Quantity,
			UnitPrice:                line.UnitPrice,
			PersonalizationSurcharge: line.PersonalizationSurcharge,
			RequiresShipping:         line.RequiresShipping,
		})
	}

	return &domain.Order{
		ID:               uuid.New(),
		StoreID:          res.StoreID,
		Lines:            lines,
		Totals:           res.Intent.Totals,
		Customer:         res.Intent.Customer,
		Shipping:         res.Intent.Shipping,
		PaymentReference: paymentReference,
		ReservationToken: res.Token,
		CreatedAt:        time.Now(),
	}
}
