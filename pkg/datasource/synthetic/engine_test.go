package synthetic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

func testInstruments() []common.Instrument {
	eurusd := fxInstrument()

	inactive := fxInstrument()
	inactive.Symbol = "GBPUSD"
	inactive.IsActive = false

	gold := common.Instrument{
		Symbol:         "XAUUSD",
		AssetClass:     common.AssetClassMetals,
		PricePrecision: 2,
		ContractSize:   fixed.FromInt(100, 0),
		IsActive:       true,
	}

	return []common.Instrument{eurusd, inactive, gold}
}

func TestEngine_OnlyActiveInstruments(t *testing.T) {
	e := NewEngine(bus.NewRouter(100), testInstruments(), WithSeed(42))

	assert.Len(t, e.generators, 2)
	_, ok := e.generators["GBPUSD"]
	assert.False(t, ok, "inactive instruments are not simulated")
}

func TestEngine_StepPublishesToBoard(t *testing.T) {
	router := bus.NewRouter(100)
	e := NewEngine(router, testInstruments(), WithSeed(42))

	_, err := e.Tick("EURUSD")
	assert.ErrorIs(t, err, ErrNoTick)

	e.Step(time.Now())

	tick, err := e.Tick("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", tick.Symbol)

	all := e.AllTicks()
	require.Len(t, all, 2)
	assert.Equal(t, "EURUSD", all[0].Symbol)
	assert.Equal(t, "XAUUSD", all[1].Symbol)
}

func TestEngine_StepIsLastWriterWins(t *testing.T) {
	router := bus.NewRouter(100)
	e := NewEngine(router, testInstruments(), WithSeed(42))

	e.Step(time.Now())
	first, err := e.Tick("EURUSD")
	require.NoError(t, err)

	e.Step(time.Now())
	second, err := e.Tick("EURUSD")
	require.NoError(t, err)

	assert.NotEqual(t, first.TraceID, second.TraceID, "board keeps only the latest tick")
}

func TestEngine_UnknownSymbol(t *testing.T) {
	e := NewEngine(bus.NewRouter(100), testInstruments(), WithSeed(42))
	e.Step(time.Now())

	_, err := e.Tick("USDJPY")
	assert.ErrorIs(t, err, ErrNoTick)
}
