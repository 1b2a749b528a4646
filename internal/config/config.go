package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort string `env:"GRPC_PORT" envDefault:"50060"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	MongoURI    string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName string `env:"MONGO_DB_NAME" envDefault:"scancart"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	CatalogDBPath  string `env:"CATALOG_DB_PATH" envDefault:"./internal/catalog/catalog.db"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./internal/catalog/migrations"`

	// Empty disables both the scan consumer and the event observer.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	ScanTopic    string   `env:"SCAN_TOPIC" envDefault:"tag-scans"`
	EventsTopic  string   `env:"EVENTS_TOPIC" envDefault:"scan-events"`

	StorageTimeout  time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	ScanRatePerSec float64 `env:"SCAN_RATE_PER_SEC" envDefault:"20"`
	ScanRateBurst  int     `env:"SCAN_RATE_BURST" envDefault:"40"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.StorageTimeout <= 0 {
		return nil, fmt.Errorf("STORAGE_TIMEOUT must be positive, got %s", cfg.StorageTimeout)
	}
	return &cfg, nil
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
