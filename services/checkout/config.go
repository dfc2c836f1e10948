package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"checkout-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`

	OTLPEndpoint     string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"true"`

	CommerceBaseURL        string        `envconfig:"COMMERCE_BASE_URL" required:"true"`
	CommerceConsumerKey    string        `envconfig:"COMMERCE_CONSUMER_KEY"`
	CommerceConsumerSecret string        `envconfig:"COMMERCE_CONSUMER_SECRET"`
	OrderTimeout           time.Duration `envconfig:"ORDER_TIMEOUT" default:"60s"`
	DefaultTaxRate         float64       `envconfig:"DEFAULT_TAX_RATE" default:"0"`

	InventoryBaseURL           string        `envconfig:"INVENTORY_BASE_URL" required:"true"`
	InventoryConsumerKey       string        `envconfig:"INVENTORY_CONSUMER_KEY"`
	InventoryConsumerSecret    string        `envconfig:"INVENTORY_CONSUMER_SECRET"`
	InventoryReadTimeout       time.Duration `envconfig:"INVENTORY_READ_TIMEOUT" default:"10s"`
	InventoryReadRetries       int           `envconfig:"INVENTORY_READ_RETRIES" default:"2"`
	InventoryReadDelay         time.Duration `envconfig:"INVENTORY_READ_DELAY" default:"1s"`
	InventoryWriteTimeout      time.Duration `envconfig:"INVENTORY_WRITE_TIMEOUT" default:"10s"`
	InventoryWriteRetries      int           `envconfig:"INVENTORY_WRITE_RETRIES" default:"3"`
	InventoryWriteDelay        time.Duration `envconfig:"INVENTORY_WRITE_DELAY" default:"1s"`
	InventoryConditionalWrites bool          `envconfig:"INVENTORY_CONDITIONAL_WRITES" default:"false"`

	KafkaBrokers    string `envconfig:"KAFKA_BROKERS"`
	KafkaAlertTopic string `envconfig:"KAFKA_ALERT_TOPIC" default:"pos.inventory.alerts"`
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.CommerceBaseURL = strings.TrimRight(cfg.CommerceBaseURL, "/")
	cfg.InventoryBaseURL = strings.TrimRight(cfg.InventoryBaseURL, "/")

	if cfg.CommerceBaseURL == "" || cfg.InventoryBaseURL == "" {
		return Config{}, fmt.Errorf("COMMERCE_BASE_URL and INVENTORY_BASE_URL must be set")
	}
	if cfg.InventoryReadRetries < 0 || cfg.InventoryWriteRetries < 0 {
		return Config{}, fmt.Errorf("retry counts must not be negative")
	}
	if cfg.DefaultTaxRate < 0 {
		return Config{}, fmt.Errorf("DEFAULT_TAX_RATE must not be negative")
	}
	return cfg, nil
}

// ReadPolicy is the retry policy of stock reads.
func (c Config) ReadPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: c.InventoryReadRetries,
		Timeout:    c.InventoryReadTimeout,
		Delay:      c.InventoryReadDelay,
	}
}

// WritePolicy is the retry policy of stock writes.
func (c Config) WritePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: c.InventoryWriteRetries,
		Timeout:    c.InventoryWriteTimeout,
		Delay:      c.InventoryWriteDelay,
		Linear:     true,
	}
}
