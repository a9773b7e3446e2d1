package synthetic

import (
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// Per-asset-class simulation defaults, applied when an instrument does not
// configure its own seed price or spread.
type classDefaults struct {
	seedPrice  fixed.Point
	spread     fixed.Point
	volatility float64
}

var assetClassDefaults = map[common.AssetClass]classDefaults{
	common.AssetClassFx:      {seedPrice: fixed.FromFloat64(1.0), spread: fixed.FromFloat64(0.0002), volatility: 0.10},
	common.AssetClassIndices: {seedPrice: fixed.FromInt(10000, 0), spread: fixed.FromFloat64(2.0), volatility: 0.15},
	common.AssetClassMetals:  {seedPrice: fixed.FromInt(2000, 0), spread: fixed.FromFloat64(0.5), volatility: 0.20},
	common.AssetClassCrypto:  {seedPrice: fixed.FromInt(1000, 0), spread: fixed.FromInt(50, 0), volatility: 0.50},
	common.AssetClassStocks:  {seedPrice: fixed.FromInt(100, 0), spread: fixed.FromFloat64(0.01), volatility: 0.15},
}

var fallbackDefaults = classDefaults{
	seedPrice:  fixed.One,
	spread:     fixed.FromFloat64(0.01),
	volatility: 0.15,
}

// Well-known symbols get realistic session-start marks.
var symbolSeedPrices = map[string]fixed.Point{
	"EURUSD": fixed.FromFloat64(1.1000),
	"GBPUSD": fixed.FromFloat64(1.2700),
	"USDJPY": fixed.FromFloat64(150.00),
	"USDCHF": fixed.FromFloat64(0.8800),
	"AUDUSD": fixed.FromFloat64(0.6700),
	"NZDUSD": fixed.FromFloat64(0.6200),
	"USDCAD": fixed.FromFloat64(1.3500),
	"EURGBP": fixed.FromFloat64(0.8650),
	"EURJPY": fixed.FromFloat64(165.00),
	"GBPJPY": fixed.FromFloat64(195.00),

	"US100":  fixed.FromInt(18000, 0),
	"SPX500": fixed.FromInt(4500, 0),
	"US30":   fixed.FromInt(39000, 0),
	"UK100":  fixed.FromInt(7800, 0),
	"GER40":  fixed.FromInt(18000, 0),
	"JPN225": fixed.FromInt(38000, 0),

	"XAUUSD": fixed.FromInt(2000, 0),
	"XAGUSD": fixed.FromFloat64(24.50),
	"XPTUSD": fixed.FromInt(950, 0),

	"BTCUSD": fixed.FromInt(45000, 0),
	"ETHUSD": fixed.FromInt(2500, 0),
	"LTCUSD": fixed.FromInt(75, 0),
	"XRPUSD": fixed.FromFloat64(0.65),

	"AAPL":  fixed.FromInt(180, 0),
	"GOOGL": fixed.FromInt(140, 0),
	"MSFT":  fixed.FromInt(380, 0),
	"TSLA":  fixed.FromInt(250, 0),
	"AMZN":  fixed.FromInt(150, 0),
	"META":  fixed.FromInt(480, 0),
	"NVDA":  fixed.FromInt(500, 0),
}

func defaultsFor(class common.AssetClass) classDefaults {
	if d, ok := assetClassDefaults[class]; ok {
		return d
	}
	return fallbackDefaults
}

func seedPriceFor(instrument common.Instrument) fixed.Point {
	if !instrument.SeedPrice.IsZero() {
		return instrument.SeedPrice
	}
	if price, ok := symbolSeedPrices[instrument.Symbol]; ok {
		return price
	}
	return defaultsFor(instrument.AssetClass).seedPrice
}

func spreadFor(instrument common.Instrument) fixed.Point {
	if instrument.SpreadModel == common.SpreadModelFixed && !instrument.FixedSpread.IsZero() {
		return instrument.FixedSpread
	}
	return defaultsFor(instrument.AssetClass).spread
}

func volatilityFor(instrument common.Instrument) float64 {
	return defaultsFor(instrument.AssetClass).volatility
}
