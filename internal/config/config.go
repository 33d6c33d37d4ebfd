package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string
	Environment      string
	Database         DatabaseConfig
	SessionProvider  SessionProviderConfig
	CaptureProvider  CaptureProviderConfig
	ShippingProvider ShippingProviderConfig
	Checkout         CheckoutConfig
	MigrationsDir    string
	LogLevel         string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SessionProviderConfig configures the redirect-style payment provider
type SessionProviderConfig struct {
	BaseURL   string
	SecretKey string
}

// CaptureProviderConfig configures the approve/capture payment provider
type CaptureProviderConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// ShippingProviderConfig configures the shipping-rate provider
type ShippingProviderConfig struct {
	BaseURL string
	APIKey  string
}

// CheckoutConfig tunes the checkout flow
type CheckoutConfig struct {
	ReservationTTL  time.Duration
	ProviderRetries int
	RetryDelay      time.Duration
	SuccessURL      string
	CancelURL       string
	Currency        string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("RESERVATION_TTL", "15m")
	viper.SetDefault("PROVIDER_RETRIES", 3)
	viper.SetDefault("PROVIDER_RETRY_DELAY", "500ms")
	viper.SetDefault("CHECKOUT_CURRENCY", "EUR")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	ttl, err := time.ParseDuration(getEnvOrViper("RESERVATION_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_TTL: %w", err)
	}
	retryDelay, err := time.ParseDuration(getEnvOrViper("PROVIDER_RETRY_DELAY", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_RETRY_DELAY: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "checkout"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		SessionProvider: SessionProviderConfig{
			BaseURL:   getEnvOrViper("SESSION_PROVIDER_URL", ""),
			SecretKey: getEnvOrViper("SESSION_PROVIDER_SECRET_KEY", ""),
		},
		CaptureProvider: CaptureProviderConfig{
			BaseURL:      getEnvOrViper("CAPTURE_PROVIDER_URL", ""),
			ClientID:     getEnvOrViper("CAPTURE_PROVIDER_CLIENT_ID", ""),
			ClientSecret: getEnvOrViper("CAPTURE_PROVIDER_CLIENT_SECRET", ""),
		},
		ShippingProvider: ShippingProviderConfig{
			BaseURL: getEnvOrViper("SHIPPING_PROVIDER_URL", ""),
			APIKey:  getEnvOrViper("SHIPPING_PROVIDER_API_KEY", ""),
		},
		Checkout: CheckoutConfig{
			ReservationTTL:  ttl,
			ProviderRetries: viper.GetInt("PROVIDER_RETRIES"),
			RetryDelay:      retryDelay,
			SuccessURL:      getEnvOrViper("CHECKOUT_SUCCESS_URL", ""),
			CancelURL:       getEnvOrViper("CHECKOUT_CANCEL_URL", ""),
			Currency:        getEnvOrViper("CHECKOUT_CURRENCY", "EUR"),
		},
		MigrationsDir: getEnvOrViper("MIGRATIONS_DIR", "migrations"),
		LogLevel:      getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.SessionProvider.BaseURL == "" {
		return nil, fmt.Errorf("SESSION_PROVIDER_URL is required")
	}
	if cfg.CaptureProvider.BaseURL == "" {
		return nil, fmt.Errorf("CAPTURE_PROVIDER_URL is required")
	}
	if cfg.Checkout.SuccessURL == "" || cfg.Checkout.CancelURL == "" {
		return nil, fmt.Errorf("CHECKOUT_SUCCESS_URL and CHECKOUT_CANCEL_URL are required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
