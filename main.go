package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/storelink/correios-bridge/internal/server"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Local development convenience; production uses real env vars.
	godotenv.Load()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "correios-bridge",
	Short:   "Correios Bridge - shipping quote service for storefront checkouts",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	metrics := initMetrics()

	// Open the database and run migrations
	db, err := initDatabase(cfg)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	// Wire the carrier client through the credential manager
	quotes, webhooks, appData, err := initShippingServices(cfg, db, logger, metrics)
	if err != nil {
		return err
	}

	logger.Info("Starting Correios Bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
	)

	// Start HTTP server
	srv := server.New(server.Config{Port: cfg.Port}, quotes, webhooks, appData, logger, metrics)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
