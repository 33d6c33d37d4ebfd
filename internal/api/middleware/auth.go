package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/internal/repository"
)

const storeContextKey = "store"

// AuthMiddleware authenticates tenant stores by bearer API key
func AuthMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		if apiKey == authHeader || apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		store, err := repos.Store.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			logger.Warn("API key authentication failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(storeContextKey, store)
		c.Next()
	}
}

// GetStoreFromContext returns the authenticated store for this request
func GetStoreFromContext(c *gin.Context) (*domain.Store, bool) {
	value, ok := c.Get(storeContextKey)
	if !ok {
		return nil, false
	}
	store, ok := value.(*domain.Store)
	return store, ok
}
