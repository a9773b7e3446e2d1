package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/meridianfx/meridian/pkg/middleware"
)

const monitorFlags = middleware.MonitorOrders | middleware.MonitorLedger

type config struct {
	Environment string `env:"MERIDIAN_ENV" envDefault:"dev"`
	ListenAddr  string `env:"MERIDIAN_LISTEN_ADDR" envDefault:":8080"`

	CatalogPath   string `env:"MERIDIAN_CATALOG_PATH"`
	EventCapacity int    `env:"MERIDIAN_EVENT_CAPACITY" envDefault:"8192"`

	TickInterval  time.Duration `env:"MERIDIAN_TICK_INTERVAL" envDefault:"1s"`
	Seed          int64         `env:"MERIDIAN_SEED" envDefault:"0"`
	SweepInterval time.Duration `env:"MERIDIAN_SWEEP_INTERVAL" envDefault:"250ms"`
	RiskInterval  time.Duration `env:"MERIDIAN_RISK_INTERVAL" envDefault:"500ms"`

	AccountID       string `env:"MERIDIAN_ACCOUNT_ID" envDefault:"demo"`
	StartingBalance string `env:"MERIDIAN_STARTING_BALANCE" envDefault:"10000"`

	JournalDir string `env:"MERIDIAN_JOURNAL_DIR"`
	DuckDBPath string `env:"MERIDIAN_DUCKDB_PATH"`

	PgHost string `env:"MERIDIAN_PG_HOST"`
	PgPort string `env:"MERIDIAN_PG_PORT" envDefault:"5432"`
	PgUser string `env:"MERIDIAN_PG_USER" envDefault:"meridian"`
	PgPass string `env:"MERIDIAN_PG_PASS"`
	PgName string `env:"MERIDIAN_PG_NAME" envDefault:"meridian"`

	PushoverUser   string `env:"MERIDIAN_PUSHOVER_USER"`
	PushoverToken  string `env:"MERIDIAN_PUSHOVER_TOKEN"`
	PushoverDevice string `env:"MERIDIAN_PUSHOVER_DEVICE"`
}

func loadConfig() (config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse environment: %w", err)
	}
	return cfg, nil
}

// defaultCatalog covers one instrument per asset class so the daemon is
// usable without any configuration.
const defaultCatalog = `
instruments:
  - symbol: EURUSD
    name: Euro vs US Dollar
    asset_class: fx
    quote_currency: USD
    price_precision: 5
    min_lot: "0.01"
    lot_step: "0.01"
    contract_size: "100000"
    leverage: "100"
    swap_long_rate: "-0.0001"
    swap_short_rate: "0.00005"
    is_active: true
  - symbol: XAUUSD
    name: Gold vs US Dollar
    asset_class: metals
    quote_currency: USD
    price_precision: 2
    min_lot: "0.01"
    lot_step: "0.01"
    contract_size: "100"
    leverage: "20"
    commission_per_lot: "7"
    is_active: true
  - symbol: US500
    name: S&P 500 Index
    asset_class: indices
    quote_currency: USD
    price_precision: 2
    min_lot: "0.1"
    lot_step: "0.1"
    contract_size: "10"
    margin_rate: "0.05"
    is_active: true
  - symbol: BTCUSD
    name: Bitcoin vs US Dollar
    asset_class: crypto
    quote_currency: USD
    price_precision: 2
    min_lot: "0.001"
    lot_step: "0.001"
    contract_size: "1"
    leverage: "2"
    is_active: true
`
