package payment

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from a payment provider, carrying the
// HTTP status so callers can tell declines apart from provider faults
// without parsing message text.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s provider error: status %d, body: %s", e.Provider, e.Code, e.Body)
}

// IsDecline reports whether err carries a provider response that means the
// payment itself was refused (402) or rejected as unprocessable (422),
// rather than a transport failure or provider fault.
func IsDecline(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code == http.StatusPaymentRequired ||
		statusErr.Code == http.StatusUnprocessableEntity
}

// Item is one line item sent to a payment provider
type Item struct {
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// SessionRequest creates a hosted checkout session (redirect-style provider)
type SessionRequest struct {
	Items      []Item            `json:"items"`
	Total      int64             `json:"total"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Session is a created hosted checkout session
type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"url"`
}

// SessionStatus is the verified payment status of a session, fetched from
// the provider. Never trust the return URL alone.
type SessionStatus struct {
	Paid      bool              `json:"paid"`
	Reference string            `json:"payment_reference"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// OrderRequest creates a provider-side order (approve/capture-style provider)
type OrderRequest struct {
	Items    []Item `json:"items"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

// ProviderOrder is a created provider-side order awaiting buyer approval
type ProviderOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CaptureResult is the outcome of a capture call
type CaptureResult struct {
	Captured  bool   `json:"captured"`
	Reference string `json:"payment_reference"`
}
