package middleware

import (
	"context"
	"time"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"go.uber.org/zap"
)

// Performance measures time spent inside the wrapped handlers. Like the
// telemetry counters, the fields are touched only from the dispatch goroutine.
type Performance struct {
	logger *zap.Logger

	tickEventCounter     int64
	candleEventCounter   int64
	orderEventCounter    int64
	positionEventCounter int64
	metricsEventCounter  int64
	ledgerEventCounter   int64

	totalTickHandlerDur     time.Duration
	totalCandleHandlerDur   time.Duration
	totalOrderHandlerDur    time.Duration
	totalPositionHandlerDur time.Duration
	totalMetricsHandlerDur  time.Duration
	totalLedgerHandlerDur   time.Duration
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(ctx context.Context, tick common.Tick) {
		startTime := time.Now()
		handler(ctx, tick)
		p.tickEventCounter++
		p.totalTickHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithCandle(handler bus.CandleEventHandler) bus.CandleEventHandler {
	return func(ctx context.Context, candle common.Candle) {
		startTime := time.Now()
		handler(ctx, candle)
		p.candleEventCounter++
		p.totalCandleHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, order common.Order) {
		startTime := time.Now()
		handler(ctx, order)
		p.orderEventCounter++
		p.totalOrderHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithPositionUpdate(handler bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return func(ctx context.Context, position common.Position) {
		startTime := time.Now()
		handler(ctx, position)
		p.positionEventCounter++
		p.totalPositionHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithMetrics(handler bus.MetricsEventHandler) bus.MetricsEventHandler {
	return func(ctx context.Context, metrics common.AccountMetrics) {
		startTime := time.Now()
		handler(ctx, metrics)
		p.metricsEventCounter++
		p.totalMetricsHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithLedgerEntry(handler bus.LedgerEventHandler) bus.LedgerEventHandler {
	return func(ctx context.Context, entry common.LedgerEntry) {
		startTime := time.Now()
		handler(ctx, entry)
		p.ledgerEventCounter++
		p.totalLedgerHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) PrintStatistics() {
	var fields []zap.Field

	appendDur := func(name string, count int64, total time.Duration) {
		if count == 0 {
			return
		}
		avg := total / time.Duration(count)
		if avg > 0 {
			fields = append(fields,
				zap.Duration(name+"_avg_duration", avg),
				zap.Duration(name+"_total_duration", total),
			)
		}
	}

	appendDur("tick", p.tickEventCounter, p.totalTickHandlerDur)
	appendDur("candle", p.candleEventCounter, p.totalCandleHandlerDur)
	appendDur("order", p.orderEventCounter, p.totalOrderHandlerDur)
	appendDur("position", p.positionEventCounter, p.totalPositionHandlerDur)
	appendDur("metrics", p.metricsEventCounter, p.totalMetricsHandlerDur)
	appendDur("ledger", p.ledgerEventCounter, p.totalLedgerHandlerDur)

	if len(fields) == 0 {
		p.logger.Info("no handler activity recorded")
		return
	}
	p.logger.Info("handler performance", fields...)
}
