package synthetic

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const (
	tickGeneratorComponentName = "datasource.synthetic.generator"

	secondsPerYear = 365.25 * 24 * 3600
	annualDrift    = 0.0001
)

// TickGenerator evolves one instrument's mid price with a geometric
// Brownian motion step per tick:
//
//	mid' = mid * (1 + drift*dt + volatility*sqrt(dt)*noise)
//
// where dt is the tick interval as a year fraction. The noise source is
// seeded per instrument so a run can be replayed deterministically.
type TickGenerator struct {
	instrument common.Instrument
	rng        *rand.Rand

	drift      fixed.Point
	sigmaSqrtT fixed.Point
	spread     fixed.Point

	lastMid fixed.Point
}

// NewTickGenerator derives the generator's parameters from the instrument
// and its asset class. A missing seed price falls back to the asset-class
// default, it is never an error.
func NewTickGenerator(instrument common.Instrument, interval time.Duration, seed int64) *TickGenerator {
	dt := interval.Seconds() / secondsPerYear
	sigma := volatilityFor(instrument)

	return &TickGenerator{
		instrument: instrument,
		rng:        rand.New(rand.NewSource(seed ^ symbolSeed(instrument.Symbol))),
		drift:      fixed.FromFloat64(annualDrift * dt),
		sigmaSqrtT: fixed.FromFloat64(sigma).Mul(fixed.FromFloat64(dt).Sqrt()),
		spread:     spreadFor(instrument),
		lastMid:    seedPriceFor(instrument),
	}
}

// Next advances the walk one step and publishes the quote rounded
// half-up to the instrument's price precision. The unrounded mid is kept
// internally so precision does not bias the walk.
func (g *TickGenerator) Next(now time.Time) common.Tick {
	noise := fixed.FromFloat64(g.rng.NormFloat64())
	change := g.drift.Add(g.sigmaSqrtT.Mul(noise))
	g.lastMid = g.lastMid.Mul(fixed.One.Add(change))

	return g.quote(now)
}

// Seed emits the instrument's starting quote without advancing the walk.
func (g *TickGenerator) Seed(now time.Time) common.Tick {
	return g.quote(now)
}

func (g *TickGenerator) quote(now time.Time) common.Tick {
	precision := g.instrument.PricePrecision
	halfSpread := g.spread.DivInt64(2)

	return common.Tick{
		Bid: g.lastMid.Sub(halfSpread).RoundHalfUp(precision),
		Ask: g.lastMid.Add(halfSpread).RoundHalfUp(precision),
		Mid: g.lastMid.RoundHalfUp(precision),

		Source:      tickGeneratorComponentName,
		Symbol:      g.instrument.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   now,
	}
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return int64(h.Sum64()) // #nosec G115
}
