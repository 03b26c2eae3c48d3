package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storelink/correios-bridge/internal/appdata"
	"github.com/storelink/correios-bridge/internal/config"
	"github.com/storelink/correios-bridge/internal/shipping"
	"github.com/storelink/correios-bridge/internal/telemetry"
	"github.com/storelink/correios-bridge/pkg/correios"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics()
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	dialector := postgres.Open(cfg.DatabaseDSN)
	if cfg.DatabaseDSN == "" {
		// Local development fallback; production always sets DATABASE_DSN.
		dialector = sqlite.Open("correios-bridge.db")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&correios.Contract{}, &appdata.Document{}); err != nil {
		return nil, err
	}
	return db, nil
}

func initAPIClient(cfg *config.Config) correios.APIClient {
	if cfg.CorreiosUseMock {
		return correios.NewMockAPIClient()
	}
	return correios.NewHTTPAPIClient(correios.HTTPAPIClientConfig{
		BaseURL:     cfg.CorreiosBaseURL,
		Timeout:     cfg.CorreiosTimeout,
		AuthTimeout: cfg.CorreiosAuthTimeout,
	})
}

func initShippingServices(cfg *config.Config, db *gorm.DB, logger *otelzap.Logger, metrics *telemetry.Metrics) (*shipping.QuoteService, *shipping.WebhookService, *appdata.Store, error) {
	api := initAPIClient(cfg)

	manager := correios.NewManager(correios.ManagerConfig{
		API:    api,
		Store:  correios.NewGormContractStore(db),
		Logger: logger,
	})

	appData := appdata.NewStore(db)
	quotes := shipping.NewQuoteService(manager, api, logger, metrics)
	webhooks := shipping.NewWebhookService(manager, api, appData, logger)

	return quotes, webhooks, appData, nil
}
