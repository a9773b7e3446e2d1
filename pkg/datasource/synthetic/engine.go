package synthetic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
)

const engineComponentName = "datasource.synthetic.engine"

type Option func(*Engine)

func WithTickInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.interval = interval
	}
}

// WithSeed fixes the base random seed so a whole session replays
// deterministically.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// Engine drives one tick generator per active instrument on an
// independent cadence and publishes every quote to the current-tick board
// and the event bus. One instrument failing never stalls the others, each
// runs on its own goroutine.
type Engine struct {
	router   *bus.Router
	board    *Board
	interval time.Duration
	seed     int64

	generators map[string]*TickGenerator
	wg         sync.WaitGroup
}

func NewEngine(router *bus.Router, instruments []common.Instrument, options ...Option) *Engine {
	e := &Engine{
		router:     router,
		board:      NewBoard(),
		interval:   time.Second,
		seed:       time.Now().UnixNano(),
		generators: make(map[string]*TickGenerator, len(instruments)),
	}

	for _, option := range options {
		option(e)
	}

	for _, instrument := range instruments {
		if !instrument.IsActive {
			continue
		}
		e.generators[instrument.Symbol] = NewTickGenerator(instrument, e.interval, e.seed)
	}

	return e
}

// Run seeds the board with every instrument's starting quote and starts
// the per-instrument generation loops. It returns immediately; the loops
// stop when ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	now := time.Now()
	for _, generator := range e.generators {
		e.publish(generator.Seed(now))
	}

	for symbol, generator := range e.generators {
		e.wg.Add(1)
		go e.generate(ctx, symbol, generator)
	}
}

// Wait blocks until all generation loops have stopped.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Tick returns the current quote for the symbol.
func (e *Engine) Tick(symbol string) (common.Tick, error) {
	return e.board.Tick(symbol)
}

// AllTicks returns the current quote of every simulated instrument.
func (e *Engine) AllTicks() []common.Tick {
	return e.board.AllTicks()
}

// Step advances every generator one tick synchronously. Used for
// deterministic replay instead of Run.
func (e *Engine) Step(now time.Time) {
	for _, generator := range e.generators {
		e.publish(generator.Next(now))
	}
}

func (e *Engine) generate(ctx context.Context, symbol string, generator *TickGenerator) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("tick generation stopped", "component", engineComponentName, "symbol", symbol)
			return
		case now := <-ticker.C:
			e.publish(generator.Next(now))
		}
	}
}

func (e *Engine) publish(tick common.Tick) {
	e.board.Put(tick)
	if err := e.router.Post(bus.TickEvent, tick); err != nil {
		slog.Warn("unable to post tick event",
			"component", engineComponentName, "symbol", tick.Symbol, "error", err)
	}
}
