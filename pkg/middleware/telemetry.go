package middleware

import (
	"context"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"go.uber.org/zap"
)

// Telemetry counts events flowing through the wrapped handlers. Counters are
// written from the router dispatch goroutine only.
type Telemetry struct {
	logger *zap.Logger

	tickEventCounter     int64
	candleEventCounter   int64
	orderEventCounter    int64
	positionEventCounter int64
	metricsEventCounter  int64
	ledgerEventCounter   int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(ctx context.Context, tick common.Tick) {
		t.tickEventCounter++
		handler(ctx, tick)
	}
}

func (t *Telemetry) WithCandle(handler bus.CandleEventHandler) bus.CandleEventHandler {
	return func(ctx context.Context, candle common.Candle) {
		t.candleEventCounter++
		handler(ctx, candle)
	}
}

func (t *Telemetry) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, order common.Order) {
		t.orderEventCounter++
		handler(ctx, order)
	}
}

func (t *Telemetry) WithPositionUpdate(handler bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return func(ctx context.Context, position common.Position) {
		t.positionEventCounter++
		handler(ctx, position)
	}
}

func (t *Telemetry) WithMetrics(handler bus.MetricsEventHandler) bus.MetricsEventHandler {
	return func(ctx context.Context, metrics common.AccountMetrics) {
		t.metricsEventCounter++
		handler(ctx, metrics)
	}
}

func (t *Telemetry) WithLedgerEntry(handler bus.LedgerEventHandler) bus.LedgerEventHandler {
	return func(ctx context.Context, entry common.LedgerEntry) {
		t.ledgerEventCounter++
		handler(ctx, entry)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("tick_events", t.tickEventCounter),
		zap.Int64("candle_events", t.candleEventCounter),
		zap.Int64("order_events", t.orderEventCounter),
		zap.Int64("position_events", t.positionEventCounter),
		zap.Int64("metrics_events", t.metricsEventCounter),
		zap.Int64("ledger_events", t.ledgerEventCounter))
}
