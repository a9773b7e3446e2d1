package candles

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const aggregatorComponentName = "candles.aggregator"

// Store persists closed candles. Upsert must treat a duplicate
// (symbol, timeframe, open time) key as a no-op so flushes stay idempotent.
type Store interface {
	UpsertCandle(ctx context.Context, candle common.Candle) error
}

type bucketKey struct {
	symbol    string
	timeframe common.Timeframe
}

// Aggregator folds the tick stream of every instrument into one open OHLC
// bucket per (symbol, timeframe) and flushes buckets as their windows
// close. The same tick stream feeds all timeframes independently.
type Aggregator struct {
	router *bus.Router
	store  Store

	mu        sync.Mutex
	durations map[common.Timeframe]time.Duration
	buckets   map[bucketKey]*common.Candle
}

func NewAggregator(router *bus.Router, store Store, timeframes ...common.Timeframe) (*Aggregator, error) {
	if len(timeframes) == 0 {
		timeframes = common.DefaultTimeframes
	}

	durations := make(map[common.Timeframe]time.Duration, len(timeframes))
	for _, tf := range timeframes {
		d, err := tf.Duration()
		if err != nil {
			return nil, fmt.Errorf("unable to configure aggregator: %w", err)
		}
		durations[tf] = d
	}

	return &Aggregator{
		router:    router,
		store:     store,
		durations: durations,
		buckets:   make(map[bucketKey]*common.Candle),
	}, nil
}

// OnTick is the bus handler; a failing flush for one bucket is logged and
// does not block the remaining timeframes.
func (a *Aggregator) OnTick(ctx context.Context, tick common.Tick) {
	for tf := range a.durations {
		if err := a.Ingest(ctx, tick, tf); err != nil {
			slog.Warn("candle ingest failed",
				"component", aggregatorComponentName,
				"symbol", tick.Symbol, "timeframe", tf, "error", err)
		}
	}
}

// Ingest applies one tick to the (symbol, timeframe) bucket, flushing and
// rolling the bucket when the tick falls past its window.
func (a *Aggregator) Ingest(ctx context.Context, tick common.Tick, tf common.Timeframe) error {
	duration, ok := a.durations[tf]
	if !ok {
		return fmt.Errorf("timeframe %q is not tracked", tf)
	}

	openTime := tick.TimeStamp.Truncate(duration)

	a.mu.Lock()
	defer a.mu.Unlock()

	key := bucketKey{symbol: tick.Symbol, timeframe: tf}
	bucket := a.buckets[key]

	if bucket != nil && !bucket.OpenTime.Equal(openTime) {
		if err := a.flush(ctx, *bucket); err != nil {
			return err
		}
		bucket = nil
	}

	if bucket == nil {
		a.buckets[key] = &common.Candle{
			Timeframe: tf,
			OpenTime:  openTime,
			CloseTime: openTime.Add(duration),
			Open:      tick.Mid,
			High:      tick.Mid,
			Low:       tick.Mid,
			Close:     tick.Mid,
			Volume:    fixed.One,
			Source:    aggregatorComponentName,
			Symbol:    tick.Symbol,
		}
		return nil
	}

	bucket.High = bucket.High.Max(tick.Mid)
	bucket.Low = bucket.Low.Min(tick.Mid)
	bucket.Close = tick.Mid
	bucket.Volume = bucket.Volume.Add(fixed.One)
	return nil
}

// Flush persists every open bucket without waiting for its window to
// close. Called on shutdown.
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for key, bucket := range a.buckets {
		if err := a.flush(ctx, *bucket); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(a.buckets, key)
	}
	return firstErr
}

func (a *Aggregator) flush(ctx context.Context, candle common.Candle) error {
	candle.ExecutionID = utility.GetExecutionID()
	candle.TraceID = utility.CreateTraceID()
	candle.TimeStamp = time.Now()

	if err := a.store.UpsertCandle(ctx, candle); err != nil {
		return fmt.Errorf("unable to persist candle %s %s @ %s: %w",
			candle.Symbol, candle.Timeframe, candle.OpenTime, err)
	}

	if err := a.router.Post(bus.CandleEvent, candle); err != nil {
		slog.Warn("unable to post candle event",
			"component", aggregatorComponentName, "symbol", candle.Symbol, "error", err)
	}
	return nil
}
