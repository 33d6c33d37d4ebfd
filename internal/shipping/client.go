package shipping

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
	"github.com/medicstrading/madebuy-checkout/internal/domain"
)

// Destination is where a physical order ships to
type Destination struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// RatesClient fetches carrier quotes from the shipping-rate provider
type RatesClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRatesClient creates a shipping-rate client
func NewRatesClient(cfg config.ShippingProviderConfig, logger *zap.Logger) *RatesClient {
	return &RatesClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type ratesRequest struct {
	Destination Destination `json:"destination"`
	Items       []rateItem  `json:"items"`
}

type rateItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type rateQuote struct {
	Carrier          string `json:"carrier"`
	Service          string `json:"service"`
	Price            int64  `json:"price"`
	EstimatedDaysMin int    `json:"estimated_days_min"`
	EstimatedDaysMax int    `json:"estimated_days_max"`
}

// GetQuotes returns carrier options for shipping the given lines
func (c *RatesClient) GetQuotes(ctx context.Context, dest Destination, lines []domain.CartLine) ([]domain.ShippingQuote, error) {
	items := make([]rateItem, 0, len(lines))
	for _, line := range lines {
		if !line.RequiresShipping {
			continue
		}
		items = append(items, rateItem{SKU: line.SKU, Quantity: line.Quantity})
	}

	jsonData, err := json.Marshal(ratesRequest{Destination: dest, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rates", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates provider error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var raw struct {
		Quotes []rateQuote `json:"quotes"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	quotes := make([]domain.ShippingQuote, 0, len(raw.Quotes))
	for _, q := range raw.Quotes {
		quotes = append(quotes, domain.ShippingQuote{
			Carrier:          q.Carrier,
			Service:          q.Service,
			PriceMinorUnits:  q.Price,
			EstimatedDaysMin: q.EstimatedDaysMin,
			EstimatedDaysMax: q.EstimatedDaysMax,
		})
	}

	return quotes, nil
}
