package synthetic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

func fxInstrument() common.Instrument {
	return common.Instrument{
		Symbol:         "EURUSD",
		AssetClass:     common.AssetClassFx,
		PricePrecision: 5,
		ContractSize:   fixed.FromInt(100000, 0),
		SeedPrice:      fixed.FromFloat64(1.1000),
		SpreadModel:    common.SpreadModelFixed,
		FixedSpread:    fixed.FromFloat64(0.0002),
		IsActive:       true,
	}
}

func TestTickGenerator_SeedQuote(t *testing.T) {
	g := NewTickGenerator(fxInstrument(), time.Second, 42)

	tick := g.Seed(time.Now())
	assert.Equal(t, "1.10000", tick.Mid.String())
	assert.Equal(t, "1.09990", tick.Bid.String())
	assert.Equal(t, "1.10010", tick.Ask.String())
	assert.Equal(t, "EURUSD", tick.Symbol)
}

func TestTickGenerator_Deterministic(t *testing.T) {
	now := time.Now()

	a := NewTickGenerator(fxInstrument(), time.Second, 42)
	b := NewTickGenerator(fxInstrument(), time.Second, 42)

	for i := 0; i < 100; i++ {
		ta := a.Next(now)
		tb := b.Next(now)
		require.Equal(t, ta.Mid.String(), tb.Mid.String(), "step %d", i)
	}
}

func TestTickGenerator_SeedsDifferPerInstrument(t *testing.T) {
	now := time.Now()

	eur := NewTickGenerator(fxInstrument(), time.Second, 42)

	gbp := fxInstrument()
	gbp.Symbol = "GBPUSD"
	gbp.SeedPrice = fixed.FromFloat64(1.1000)
	other := NewTickGenerator(gbp, time.Second, 42)

	diverged := false
	for i := 0; i < 20; i++ {
		if eur.Next(now).Mid.String() != other.Next(now).Mid.String() {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "different symbols share a base seed but must draw different noise")
}

func TestTickGenerator_SpreadAndPrecision(t *testing.T) {
	g := NewTickGenerator(fxInstrument(), time.Second, 7)
	now := time.Now()

	for i := 0; i < 50; i++ {
		tick := g.Next(now)

		assert.True(t, tick.Ask.Gt(tick.Bid), "ask above bid")
		assert.Equal(t, "0.00020", tick.Spread().String())

		// Published prices carry exactly the instrument precision.
		assert.Equal(t, tick.Mid.String(), tick.Mid.RoundHalfUp(5).String())
	}
}

func TestTickGenerator_SeedPriceFallback(t *testing.T) {
	unknown := common.Instrument{
		Symbol:         "ZZZUSD",
		AssetClass:     common.AssetClassMetals,
		PricePrecision: 2,
		IsActive:       true,
	}

	g := NewTickGenerator(unknown, time.Second, 1)
	tick := g.Seed(time.Now())

	// Falls back to the metals class default.
	assert.Equal(t, "2000.25", tick.Ask.String())
	assert.Equal(t, "1999.75", tick.Bid.String())
}

func TestTickGenerator_WellKnownSymbolSeed(t *testing.T) {
	instrument := common.Instrument{
		Symbol:         "XAUUSD",
		AssetClass:     common.AssetClassMetals,
		PricePrecision: 2,
		IsActive:       true,
	}

	g := NewTickGenerator(instrument, time.Second, 1)
	assert.Equal(t, "2000.00", g.Seed(time.Now()).Mid.String())
}
