package common

import (
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type AssetClass string

const (
	AssetClassFx      AssetClass = "fx"
	AssetClassIndices AssetClass = "indices"
	AssetClassMetals  AssetClass = "metals"
	AssetClassCrypto  AssetClass = "crypto"
	AssetClassStocks  AssetClass = "stocks"
)

type SpreadModel string

const (
	SpreadModelFixed    SpreadModel = "fixed"
	SpreadModelFloating SpreadModel = "floating"
)

// Instrument describes one tradable symbol. Instances are immutable for
// the lifetime of a trading session and read-only to the engine.
type Instrument struct {
	Symbol           string      `json:"symbol" yaml:"symbol"`
	Name             string      `json:"name,omitempty" yaml:"name"`
	AssetClass       AssetClass  `json:"asset_class" yaml:"asset_class"`
	QuoteCurrency    string      `json:"quote_currency,omitempty" yaml:"quote_currency"`
	PricePrecision   int         `json:"price_precision" yaml:"price_precision"`
	MinLot           fixed.Point `json:"min_lot" yaml:"min_lot"`
	LotStep          fixed.Point `json:"lot_step" yaml:"lot_step"`
	ContractSize     fixed.Point `json:"contract_size" yaml:"contract_size"`
	MarginRate       fixed.Point `json:"margin_rate,omitempty" yaml:"margin_rate"`
	Leverage         fixed.Point `json:"leverage,omitempty" yaml:"leverage"`
	SwapLongRate     fixed.Point `json:"swap_long_rate,omitempty" yaml:"swap_long_rate"`
	SwapShortRate    fixed.Point `json:"swap_short_rate,omitempty" yaml:"swap_short_rate"`
	SpreadModel      SpreadModel `json:"spread_model,omitempty" yaml:"spread_model"`
	FixedSpread      fixed.Point `json:"fixed_spread,omitempty" yaml:"fixed_spread"`
	SeedPrice        fixed.Point `json:"seed_price,omitempty" yaml:"seed_price"`
	CommissionPerLot fixed.Point `json:"commission_per_lot,omitempty" yaml:"commission_per_lot"`
	IsActive         bool        `json:"is_active" yaml:"is_active"`
}
