package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/api/middleware"
	"github.com/medicstrading/madebuy-checkout/internal/repository"
	"github.com/medicstrading/madebuy-checkout/internal/reservation"
)

// SetStockRequest sets committed stock for a SKU
type SetStockRequest struct {
	Committed *int `json:"committed" binding:"required,min=0"`
}

// StockResponse reports stock levels for a SKU. Available is committed
// minus active reservation holds.
type StockResponse struct {
	SKU       string `json:"sku"`
	Committed int    `json:"committed"`
	Held      int    `json:"held"`
	Available int    `json:"available"`
}

// HandleGetStock handles GET /v1/admin/stock/:sku
func HandleGetStock(repos *repository.Repositories, reservations *reservation.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.GetStoreFromContext(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sku := c.Param("sku")
		committed, err := repos.Stock.GetCommitted(c.Request.Context(), sku)
		if err != nil {
			logger.Error("Failed to get stock", zap.String("sku", sku), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		held := reservations.HeldQuantity(sku)
		c.JSON(http.StatusOK, StockResponse{
			SKU:       sku,
			Committed: committed,
			Held:      held,
			Available: committed - held,
		})
	}
}

// HandleSetStock handles PUT /v1/admin/stock/:sku
func HandleSetStock(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.GetStoreFromContext(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sku := c.Param("sku")

		var req SetStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		if err := repos.Stock.SetCommitted(c.Request.Context(), sku, *req.Committed); err != nil {
			logger.Error("Failed to set stock", zap.String("sku", sku), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"sku": sku, "committed": *req.Committed})
	}
}
