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

// CaptureClient talks to the approve/capture-style payment provider: it
// creates provider-side orders and captures them after buyer approval.
type CaptureClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewCaptureClient creates a client for the approve/capture provider
func NewCaptureClient(cfg config.CaptureProviderConfig, logger *zap.Logger) *CaptureClient {
	return &CaptureClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// CreateOrder creates a provider-side order carrying line items and totals.
// The buyer approves it in an embedded widget outside our control.
func (c *CaptureClient) CreateOrder(ctx context.Context, req OrderRequest) (*ProviderOrder, error) {
	var order ProviderOrder
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req, &order); err != nil {
		return nil, fmt.Errorf("failed to create provider order: %w", err)
	}
	return &order, nil
}

// Capture captures payment for an approved provider order. The id passed
// here must be the provider's own order identifier, never a client-supplied
// one.
func (c *CaptureClient) Capture(ctx context.Context, providerOrderID string) (*CaptureResult, error) {
	var result CaptureResult
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", providerOrderID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &result); err != nil {
		return nil, fmt.Errorf("failed to capture provider order: %w", err)
	}
	return &result, nil
}

func (c *CaptureClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
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
	req.SetBasicAuth(c.clientID, c.clientSecret)

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
		return &StatusError{Provider: "capture", Code: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
