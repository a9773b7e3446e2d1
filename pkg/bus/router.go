package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/meridianfx/meridian/pkg/common"
)

type event struct {
	id   EventId
	data interface{}
}

// Router fans posted events out to the registered handlers on a single
// dispatch goroutine. Posting never blocks; when the buffer is full the
// event is dropped and reported to the caller.
type Router struct {
	// Channels
	done   chan error
	events chan event

	// Handlers
	OnTick           TickEventHandler
	OnCandle         CandleEventHandler
	OnOrderUpdate    OrderUpdateEventHandler
	OnPositionUpdate PositionUpdateEventHandler
	OnMetrics        MetricsEventHandler
	OnLedgerEntry    LedgerEventHandler

	// Statistics
	startTime     time.Time
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(eventCapacity int) *Router {
	return &Router{
		done:   make(chan error, 1),
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data interface{}) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return errors.New("event capacity reached")
	}
}

func (r *Router) Exec(ctx context.Context) <-chan error {
	r.startTime = time.Now()

	go func() {
		for {
			select {
			case <-ctx.Done():
				r.done <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatchCount.Add(1)
				if err := r.dispatch(ctx, ev); err != nil {
					r.dispatchFails.Add(1)
					slog.Warn("dispatch failed", "error", err, "event_id", ev.id)
				}
			}
		}
	}()

	return r.done
}

func (r *Router) Statistics() Statistics {
	uptime := time.Since(r.startTime)
	return Statistics{
		Uptime:          uptime,
		Posted:          r.postCount.Load(),
		Dropped:         r.postFails.Load(),
		Dispatched:      r.dispatchCount.Load(),
		DispatchFailed:  r.dispatchFails.Load(),
		EventsPerSecond: float64(r.postCount.Load()) / uptime.Seconds(),
	}
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case TickEvent:
		tick, ok := ev.data.(common.Tick)
		if !ok {
			return errors.New("invalid type assertion for tick event")
		}
		if r.OnTick != nil {
			r.OnTick(ctx, tick)
		} else {
			slog.Debug("tick handler is nil")
		}
	case CandleEvent:
		candle, ok := ev.data.(common.Candle)
		if !ok {
			return errors.New("invalid type assertion for candle event")
		}
		if r.OnCandle != nil {
			r.OnCandle(ctx, candle)
		} else {
			slog.Debug("candle handler is nil")
		}
	case OrderUpdateEvent:
		order, ok := ev.data.(common.Order)
		if !ok {
			return errors.New("invalid type assertion for order update event")
		}
		if r.OnOrderUpdate != nil {
			r.OnOrderUpdate(ctx, order)
		} else {
			slog.Debug("order update handler is nil")
		}
	case PositionUpdateEvent:
		position, ok := ev.data.(common.Position)
		if !ok {
			return errors.New("invalid type assertion for position update event")
		}
		if r.OnPositionUpdate != nil {
			r.OnPositionUpdate(ctx, position)
		} else {
			slog.Debug("position update handler is nil")
		}
	case MetricsEvent:
		metrics, ok := ev.data.(common.AccountMetrics)
		if !ok {
			return errors.New("invalid type assertion for metrics event")
		}
		if r.OnMetrics != nil {
			r.OnMetrics(ctx, metrics)
		} else {
			slog.Debug("metrics handler is nil")
		}
	case LedgerEvent:
		entry, ok := ev.data.(common.LedgerEntry)
		if !ok {
			return errors.New("invalid type assertion for ledger event")
		}
		if r.OnLedgerEntry != nil {
			r.OnLedgerEntry(ctx, entry)
		} else {
			slog.Debug("ledger handler is nil")
		}
	default:
		return errors.New("unknown event id")
	}
	return nil
}
