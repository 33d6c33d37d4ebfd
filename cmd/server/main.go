package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/medicstrading/madebuy-checkout/internal/api"
	"github.com/medicstrading/madebuy-checkout/internal/config"
	"github.com/medicstrading/madebuy-checkout/internal/payment"
	"github.com/medicstrading/madebuy-checkout/internal/repository/postgres"
	"github.com/medicstrading/madebuy-checkout/internal/reservation"
	"github.com/medicstrading/madebuy-checkout/internal/service"
	"github.com/medicstrading/madebuy-checkout/internal/shipping"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database and run migrations
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repos := postgres.NewRepositories(db, logger)

	// Build the checkout core
	reservations := reservation.NewManager(
		postgres.NewStockRepository(db, logger),
		cfg.Checkout.ReservationTTL,
		logger,
	)

	sessionClient := payment.NewSessionClient(cfg.SessionProvider, logger)
	captureClient := payment.NewCaptureClient(cfg.CaptureProvider, logger)
	ratesClient := shipping.NewRatesClient(cfg.ShippingProvider, logger)

	svc := service.NewCheckoutService(
		reservations,
		repos,
		sessionClient,
		captureClient,
		ratesClient,
		cfg.Checkout,
		logger,
	)

	router := api.NewRouter(cfg, repos, reservations, svc, logger)

	logger.Info("Starting checkout service",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Duration("reservation_ttl", cfg.Checkout.ReservationTTL),
	)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
