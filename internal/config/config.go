package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	// Correios
	CorreiosBaseURL     string        `envconfig:"CORREIOS_BASE_URL" default:"https://api.correios.com.br"`
	CorreiosTimeout     time.Duration `envconfig:"CORREIOS_TIMEOUT" default:"30s"`
	CorreiosAuthTimeout time.Duration `envconfig:"CORREIOS_AUTH_TIMEOUT" default:"6s"`
	CorreiosUseMock     bool          `envconfig:"CORREIOS_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"correios-bridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("correios.mock", c.CorreiosUseMock),
	}
}
