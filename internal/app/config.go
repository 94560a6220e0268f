package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	BackofficeURL     string        `envconfig:"BACKOFFICE_URL" required:"true"`
	BackofficeToken   string        `envconfig:"BACKOFFICE_TOKEN"`
	BackofficeTimeout time.Duration `envconfig:"BACKOFFICE_TIMEOUT" default:"20s"`

	Currency          string          `envconfig:"POS_CURRENCY" default:"PYG"`
	TaxRate           decimal.Decimal `envconfig:"POS_TAX_RATE" default:"10"`
	PricesIncludeTax  bool            `envconfig:"POS_PRICES_INCLUDE_TAX" default:"true"`
	MinSaleTotal      decimal.Decimal `envconfig:"POS_MIN_SALE_TOTAL" default:"0"`
	MaxSaleTotal      decimal.Decimal `envconfig:"POS_MAX_SALE_TOTAL" default:"0"`
	SessionIdleTTL    time.Duration   `envconfig:"POS_SESSION_IDLE_TTL" default:"2h"`
	SessionSweepEvery time.Duration   `envconfig:"POS_SESSION_SWEEP_INTERVAL" default:"5m"`

	DirectoryCacheTTL   time.Duration `envconfig:"DIRECTORY_CACHE_TTL" default:"10m"`
	DirectoryWarmupCron string        `envconfig:"DIRECTORY_WARMUP_CRON" default:"*/30 * * * *"`
}

// LoadConfig reads configuration from environment variables. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BackofficeURL == "" {
		return nil, errors.New("backoffice url must be provided")
	}
	if _, err := money.NewCurrency(cfg.Currency); err != nil {
		return nil, err
	}
	if cfg.TaxRate.IsNegative() {
		return nil, errors.New("tax rate cannot be negative")
	}
	if cfg.MinSaleTotal.IsNegative() || cfg.MaxSaleTotal.IsNegative() {
		return nil, errors.New("sale total bounds cannot be negative")
	}
	if cfg.MaxSaleTotal.IsPositive() && cfg.MaxSaleTotal.LessThan(cfg.MinSaleTotal) {
		return nil, errors.New("maximum sale total is below the minimum")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// CurrencyUnit returns the configured display currency.
func (c *Config) CurrencyUnit() money.Currency {
	cur, err := money.NewCurrency(c.Currency)
	if err != nil {
		return money.PYG
	}
	return cur
}

// DraftConfig returns the sale draft settings.
func (c *Config) DraftConfig() checkout.DraftConfig {
	return checkout.DraftConfig{
		Currency: c.CurrencyUnit(),
		Tax: checkout.TaxConfig{
			RatePercent:      c.TaxRate,
			PricesIncludeTax: c.PricesIncludeTax,
		},
		Bounds: checkout.TotalBounds{Min: c.MinSaleTotal, Max: c.MaxSaleTotal},
	}
}
