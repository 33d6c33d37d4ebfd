package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/payment"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// BeginRedirectCheckout reserves stock and creates a hosted payment session.
// Returns the URL to redirect the buyer to. The flow then suspends until the
// provider sends the buyer back to the success or cancel URL.
func (s *CheckoutService) BeginRedirectCheckout(ctx context.Context, storeID uuid.UUID, req CheckoutRequest) (string, error) {
	s.pruneCorrelations()

	intent, err := s.buildIntent(storeID, req)
	if err != nil {
		return "", err
	}

	res, err := s.reservations.Reserve(ctx, intent)
	if err != nil {
		return "", err
	}

	sessionReq := payment.SessionRequest{
		Items:      paymentItems(intent),
		Total:      intent.Totals.GrandTotal,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata:   map[string]string{reservationTokenKey: res.Token},
	}

	var session *payment.Session
	err = s.withRetry(ctx, "create_session", func() error {
		var callErr error
		session, callErr = s.redirect.CreateSession(ctx, sessionReq)
		return callErr
	})
	if err != nil {
		s.logger.Error("Failed to create payment session", zap.Error(err))
		s.releaseQuietly(res.Token)
		return "", &errors.ErrPaymentDeclined{Provider: "session"}
	}

	s.mu.Lock()
	s.pendingSessions[session.ID] = res.Token
	s.mu.Unlock()

	s.logger.Info("Redirect checkout started",
		zap.String("session", session.ID),
		zap.String("token", res.Token),
	)

	return session.RedirectURL, nil
}

// CompleteRedirectCheckout handles the success callback. The session's
// payment status is re-fetched from the provider before anything happens;
// the return URL by itself proves nothing.
func (s *CheckoutService) CompleteRedirectCheckout(ctx context.Context, sessionRef string) (*domain.Order, error) {
	var status *payment.SessionStatus
	err := s.withRetry(ctx, "get_session_status", func() error {
		var callErr error
		status, callErr = s.redirect.GetSessionStatus(ctx, sessionRef)
		return callErr
	})
	if err != nil {
		s.logger.Error("Failed to verify session status", zap.String("session", sessionRef), zap.Error(err))
		return nil, &errors.ErrPaymentDeclined{Provider: "session"}
	}

	token, err := s.sessionToken(sessionRef, status)
	if err != nil {
		return nil, err
	}

	if !status.Paid {
		s.logger.Info("Session not paid, releasing reservation",
			zap.String("session", sessionRef),
			zap.String("token", token),
		)
		s.releaseQuietly(token)
		return nil, &errors.ErrPaymentDeclined{Provider: "session"}
	}

	order, err := s.finalize(ctx, token, status.Reference)
	if err != nil {
		return nil, err
	}

	// Duplicate callbacks recover the token from session metadata, or the
	// order from its payment reference; the local entry is done.
	s.mu.Lock()
	delete(s.pendingSessions, sessionRef)
	s.mu.Unlock()

	return order, nil
}

// CancelRedirectCheckout handles the cancel callback and session expiry:
// the hold is released so the stock goes back on sale immediately.
func (s *CheckoutService) CancelRedirectCheckout(ctx context.Context, sessionRef string) error {
	s.mu.Lock()
	token, ok := s.pendingSessions[sessionRef]
	if ok {
		delete(s.pendingSessions, sessionRef)
	}
	s.mu.Unlock()

	if !ok {
		// Unknown session: nothing held locally, nothing to do. The
		// reservation, if any, will lapse via its TTL.
		s.logger.Warn("Cancel callback for unknown session", zap.String("session", sessionRef))
		return nil
	}

	s.logger.Info("Redirect checkout cancelled",
		zap.String("session", sessionRef),
		zap.String("token", token),
	)
	s.releaseQuietly(token)
	return nil
}

// sessionToken recovers the reservation token for a session, preferring the
// provider-verified metadata over the local correlation table.
func (s *CheckoutService) sessionToken(sessionRef string, status *payment.SessionStatus) (string, error) {
	if token, ok := status.Metadata[reservationTokenKey]; ok && token != "" {
		return token, nil
	}

	s.mu.Lock()
	token, ok := s.pendingSessions[sessionRef]
	s.mu.Unlock()
	if !ok {
		return "", &errors.ErrTokenInvalid{Token: sessionRef, Reason: "no reservation associated with session"}
	}
	return token, nil
}
