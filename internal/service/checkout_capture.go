package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/payment"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// BeginCaptureCheckout reserves stock and creates a provider-side order for
// the approve/capture flow. The returned provider order id is handed to the
// storefront's embedded approval widget; the reservation token stays
// server-side as correlation data and is never trusted from the client.
func (s *CheckoutService) BeginCaptureCheckout(ctx context.Context, storeID uuid.UUID, req CheckoutRequest) (string, error) {
	s.pruneCorrelations()

	intent, err := s.buildIntent(storeID, req)
	if err != nil {
		return "", err
	}

	res, err := s.reservations.Reserve(ctx, intent)
	if err != nil {
		return "", err
	}

	orderReq := payment.OrderRequest{
		Items:    paymentItems(intent),
		Total:    intent.Totals.GrandTotal,
		Currency: s.cfg.Currency,
	}

	var providerOrder *payment.ProviderOrder
	err = s.withRetry(ctx, "create_provider_order", func() error {
		var callErr error
		providerOrder, callErr = s.capture.CreateOrder(ctx, orderReq)
		return callErr
	})
	if err != nil {
		s.logger.Error("Failed to create provider order", zap.Error(err))
		s.releaseQuietly(res.Token)
		return "", &errors.ErrPaymentDeclined{Provider: "capture"}
	}

	s.mu.Lock()
	s.pendingCaptures[providerOrder.ID] = res.Token
	s.mu.Unlock()

	s.logger.Info("Capture checkout started",
		zap.String("provider_order", providerOrder.ID),
		zap.String("token", res.Token),
	)

	return providerOrder.ID, nil
}

// CompleteCaptureCheckout handles the approval callback: it captures payment
// using the provider's own order identifier and finalizes. A duplicate
// callback (double-click, network retry) rides the finalizer's idempotent
// replay and returns the original order.
func (s *CheckoutService) CompleteCaptureCheckout(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	s.mu.Lock()
	token, ok := s.pendingCaptures[providerOrderID]
	s.mu.Unlock()
	if !ok {
		return nil, &errors.ErrTokenInvalid{Token: providerOrderID, Reason: "no reservation associated with provider order"}
	}

	var result *payment.CaptureResult
	err := s.withRetry(ctx, "capture", func() error {
		var callErr error
		result, callErr = s.capture.Capture(ctx, providerOrderID)
		return callErr
	})
	if err != nil {
		if payment.IsDecline(err) {
			// Hard decline: no charge happened, free the stock
			s.logger.Info("Capture declined, releasing reservation",
				zap.String("provider_order", providerOrderID),
				zap.String("token", token),
			)
			s.releaseQuietly(token)
			return nil, &errors.ErrPaymentDeclined{Provider: "capture"}
		}
		// Transient failure after retries: the provider may or may not have
		// captured. Keep the hold; the TTL bounds how long it can linger.
		s.logger.Error("Capture failed after retries",
			zap.String("provider_order", providerOrderID),
			zap.Error(err),
		)
		return nil, &errors.ErrPaymentDeclined{Provider: "capture"}
	}

	if !result.Captured {
		s.logger.Info("Capture not completed, releasing reservation",
			zap.String("provider_order", providerOrderID),
			zap.String("token", token),
		)
		s.releaseQuietly(token)
		return nil, &errors.ErrPaymentDeclined{Provider: "capture"}
	}

	return s.finalize(ctx, token, result.Reference)
}
