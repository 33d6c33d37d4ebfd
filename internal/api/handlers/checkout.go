package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/api/middleware"
	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/service"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// BeginCheckoutResponse carries the next step of a started checkout
type BeginCheckoutResponse struct {
	RedirectURL     string `json:"redirect_url,omitempty"`
	ProviderOrderID string `json:"provider_order_id,omitempty"`
}

// OrderResponse represents a finalized order
type OrderResponse struct {
	ID               string              `json:"id"`
	Subtotal         int64               `json:"subtotal"`
	ShippingCost     int64               `json:"shipping_cost"`
	GrandTotal       int64               `json:"grand_total"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email"`
	Shipping         *ShippingResponse   `json:"shipping,omitempty"`
	PaymentReference string              `json:"payment_reference"`
	Lines            []OrderLineResponse `json:"lines"`
	CreatedAt        string              `json:"created_at"`
}

type ShippingResponse struct {
	Carrier          string `json:"carrier"`
	Service          string `json:"service"`
	Price            int64  `json:"price"`
	EstimatedDaysMin int    `json:"estimated_days_min"`
	EstimatedDaysMax int    `json:"estimated_days_max"`
}

type OrderLineResponse struct {
	SKU                      string `json:"sku"`
	Title                    string `json:"title"`
	Quantity                 int    `json:"quantity"`
	UnitPrice                int64  `json:"unit_price"`
	PersonalizationSurcharge int64  `json:"personalization_surcharge,omitempty"`
	RequiresShipping         bool   `json:"requires_shipping"`
}

// HandleShippingQuotes handles POST /v1/checkout/quotes
func HandleShippingQuotes(svc *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.GetStoreFromContext(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.QuotesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		quotes, err := svc.GetShippingQuotes(c.Request.Context(), req)
		if err != nil {
			logger.Error("Failed to fetch shipping quotes", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch shipping rates"})
			return
		}

		resp := make([]ShippingResponse, 0, len(quotes))
		for _, q := range quotes {
			resp = append(resp, shippingResponse(&q))
		}
		c.JSON(http.StatusOK, gin.H{"quotes": resp})
	}
}

// HandleBeginRedirectCheckout handles POST /v1/checkout/redirect
func HandleBeginRedirectCheckout(svc *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := middleware.GetStoreFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		redirectURL, err := svc.BeginRedirectCheckout(c.Request.Context(), store.ID, req)
		if err != nil {
			renderCheckoutError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, BeginCheckoutResponse{RedirectURL: redirectURL})
	}
}

// HandleCompleteRedirectCheckout handles GET /v1/checkout/redirect/return
func HandleCompleteRedirectCheckout(svc *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionRef := c.Query("session_id")
		if sessionRef == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
			return
		}

		order, err := svc.CompleteRedirectCheckout(c.Request.Context(), sessionRef)
		if err != nil {
			renderCheckoutError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, orderResponse(order))
	}
}

// HandleCancelRedirectCheckout handles GET /v1/checkout/redirect/cancel
func HandleCancelRedirectCheckout(svc *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionRef := c.Query("session_id")
		if sessionRef == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
			return
		}

		if err := svc.CancelRedirectCheckout(c.Request.Context(), sessionRef); err != nil {
			logger.Error("Failed to cancel checkout", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}

// HandleBeginCaptureCheckout handles POST /v1/checkout/capture
func HandleBeginCaptureCheckout(svc *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := middleware.GetStoreFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		providerOrderID, err := svc.BeginCaptureCheckout(c.Request.Context(), store.ID, req)
		if err != nil {
			renderCheckoutError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, BeginCheckoutResponse{ProviderOrderID: providerOrderID})
	}
}

// HandleCompleteCaptureCheckout handles POST /v1/checkout/capture/:id/complete
func HandleCompleteCaptureCheckout(svc *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		providerOrderID := c.Param("id")

		order, err := svc.CompleteCaptureCheckout(c.Request.Context(), providerOrderID)
		if err != nil {
			renderCheckoutError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, orderResponse(order))
	}
}

// renderCheckoutError maps checkout errors to HTTP responses. Stock and
// shipping errors are specific and actionable; payment failures stay generic
// so provider internals never leak to buyers.
func renderCheckoutError(c *gin.Context, logger *zap.Logger, err error) {
	switch e := err.(type) {
	case *errors.ErrEmptyCart:
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case *errors.ErrShippingRequired:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "a shipping selection is required for physical items"})
	case *errors.ErrInsufficientStock:
		c.JSON(http.StatusConflict, gin.H{
			"error": "item no longer available, please adjust quantity",
			"sku":   e.SKU,
		})
	case *errors.ErrReservationExpired:
		c.JSON(http.StatusGone, gin.H{"error": "checkout session expired, please try again"})
	case *errors.ErrTokenInvalid:
		logger.Error("Invalid reservation token in checkout", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "checkout could not be completed"})
	case *errors.ErrPaymentDeclined:
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment could not be completed, no charge was made"})
	default:
		logger.Error("Checkout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func orderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:               order.ID.String(),
		Subtotal:         order.Totals.Subtotal,
		ShippingCost:     order.Totals.ShippingCost,
		GrandTotal:       order.Totals.GrandTotal,
		CustomerName:     order.Customer.Name,
		CustomerEmail:    order.Customer.Email,
		PaymentReference: order.PaymentReference,
		CreatedAt:        order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	if order.Shipping != nil {
		shipping := shippingResponse(order.Shipping)
		resp.Shipping = &shipping
	}

	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			SKU:                      line.SKU,
			Title:                    line.Title,
			Quantity:                 line.Quantity,
			UnitPrice:                line.UnitPrice,
			PersonalizationSurcharge: line.PersonalizationSurcharge,
			RequiresShipping:         line.RequiresShipping,
		})
	}

	return resp
}

func shippingResponse(q *domain.ShippingQuote) ShippingResponse {
	return ShippingResponse{
		Carrier:          q.Carrier,
		Service:          q.Service,
		Price:            q.PriceMinorUnits,
		EstimatedDaysMin: q.EstimatedDaysMin,
		EstimatedDaysMax: q.EstimatedDaysMax,
	}
}
