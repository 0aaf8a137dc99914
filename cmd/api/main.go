package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printbox/internal/config"
	"printbox/internal/coupon"
	"printbox/internal/database"
	"printbox/internal/gateway"
	"printbox/internal/handler"
	"printbox/internal/notify"
	"printbox/internal/repository"
	"printbox/internal/router"
	"printbox/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is a local development convenience; absence is fine.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting printbox API server")

	if !cfg.Gateway.Configured() {
		logger.Warn().Msg("payment gateway credentials missing, checkout will be rejected")
	}

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)

	// Initialize payment gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway, logger)

	// Initialize the confirmation notification dispatcher
	dispatcher := notify.NewDispatcher(notify.NewLogSink(logger), cfg.Notify.QueueSize, cfg.Notify.Workers, logger)
	defer dispatcher.Close()

	// Initialize services
	evaluator := coupon.NewEvaluator()
	productService := service.NewProductService(productRepo, logger)
	checkoutService := service.NewCheckoutService(orderRepo, productRepo, paymentRepo, couponRepo, evaluator, gatewayClient, cfg.Gateway, logger)
	reconcileService := service.NewReconciliationService(orderRepo, paymentRepo, productRepo, gatewayClient, dispatcher, logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	orderHandler := handler.NewOrderHandler(checkoutService, logger)
	paymentHandler := handler.NewPaymentHandler(reconcileService, logger)
	couponHandler := handler.NewCouponHandler(checkoutService, logger)

	// Initialize router
	mux := router.New(productHandler, orderHandler, paymentHandler, couponHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
