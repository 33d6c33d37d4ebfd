package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/api/handlers"
	"github.com/medicstrading/madebuy-checkout/internal/api/middleware"
	"github.com/medicstrading/madebuy-checkout/internal/config"
	"github.com/medicstrading/madebuy-checkout/internal/repository"
	"github.com/medicstrading/madebuy-checkout/internal/reservation"
	"github.com/medicstrading/madebuy-checkout/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(
	cfg *config.Config,
	repos *repository.Repositories,
	reservations *reservation.Manager,
	svc *service.CheckoutService,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes (require store authentication)
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(repos, logger))
	{
		checkoutRoutes := v1.Group("/checkout")
		{
			checkoutRoutes.POST("/quotes", handlers.HandleShippingQuotes(svc, logger))
			checkoutRoutes.POST("/redirect", handlers.HandleBeginRedirectCheckout(svc, logger))
			checkoutRoutes.GET("/redirect/return", handlers.HandleCompleteRedirectCheckout(svc, logger))
			checkoutRoutes.GET("/redirect/cancel", handlers.HandleCancelRedirectCheckout(svc, logger))
			checkoutRoutes.POST("/capture", handlers.HandleBeginCaptureCheckout(svc, logger))
			checkoutRoutes.POST("/capture/:id/complete", handlers.HandleCompleteCaptureCheckout(svc, logger))
		}

		v1.GET("/orders/:id", handlers.HandleGetOrder(svc, logger))

		adminRoutes := v1.Group("/admin")
		{
			adminRoutes.GET("/stock/:sku", handlers.HandleGetStock(repos, reservations, logger))
			adminRoutes.PUT("/stock/:sku", handlers.HandleSetStock(repos, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
