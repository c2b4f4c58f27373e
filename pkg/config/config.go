package config

import (
	"errors"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTP     HTTP
	Logger   Logger
	Postgres Postgres
	Kafka    Kafka
	Catalog  Catalog
	Currency Currency
}

type HTTP struct {
	Port          int    `env:"HTTP_PORT" envDefault:"8080"`
	APIKeyEnabled bool   `env:"HTTP_API_KEY_ENABLED" envDefault:"false"`
	APIKey        string `env:"HTTP_API_KEY" envDefault:"dev"`
}

type Logger struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Postgres is optional: with an empty DSN the service runs on the
// in-memory repository (single-session dev mode).
type Postgres struct {
	DSN     string `env:"POSTGRES_DSN" envDefault:""`
	MaxConn int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
}

type Kafka struct {
	Brokers             []string `env:"KAFKA_BROKERS" envDefault:""`
	PurchaseEventsTopic string   `env:"KAFKA_PURCHASE_EVENTS_TOPIC" envDefault:"purchase_events"`
}

type Catalog struct {
	BaseURL string `env:"CATALOG_BASE_URL" envDefault:"http://localhost:8090"`
}

// Currency pins the USD→RUB conversion. These are configuration
// constants, never user input.
type Currency struct {
	UsdRubRate        decimal.Decimal `env:"USD_RUB_RATE" envDefault:"95"`
	CommissionPercent decimal.Decimal `env:"COMMISSION_PERCENT" envDefault:"7"`
}

func New(envPath string) (Config, error) {
	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	c, err := env.ParseAsWithOptions[Config](env.Options{
		RequiredIfNoDef: true,
	})
	if err != nil {
		return Config{}, err
	}

	return c, nil
}
