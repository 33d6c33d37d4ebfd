package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/config"
)

// SessionClient talks to the redirect-style payment provider: it creates
// hosted checkout sessions and verifies their payment status.
type SessionClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSessionClient creates a client for the hosted-session provider
func NewSessionClient(cfg config.SessionProviderConfig, logger *zap.Logger) *SessionClient {
	return &SessionClient{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// CreateSession creates a hosted checkout session carrying the grand total,
// line items, callback URLs and metadata. The reservation token travels in
// the metadata so the eventual confirmation can be matched back to the hold.
func (c *SessionClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &session, nil
}

// GetSessionStatus re-fetches the session's payment status directly from the
// provider. The success return URL is not proof of payment.
func (c *SessionClient) GetSessionStatus(ctx context.Context, sessionRef string) (*SessionStatus, error) {
	var status SessionStatus
	path := fmt.Sprintf("/v1/checkout/sessions/%s", sessionRef)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get session status: %w", err)
	}
	return &status, nil
}

func (c *SessionClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Provider: "session", Code: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
