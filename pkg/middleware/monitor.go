package middleware

import (
	"context"
	"log/slog"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorTicks
	MonitorCandles
	MonitorOrders
	MonitorPositions
	MonitorMetrics
	MonitorLedger
)

// Monitor logs every event that matches its flags before passing it on.
type Monitor struct {
	flags MonitorFlags
}

func NewMonitor(flags MonitorFlags) *Monitor {
	return &Monitor{
		flags: flags,
	}
}

func (m *Monitor) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(ctx context.Context, tick common.Tick) {
		if m.flags&MonitorTicks != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "tick", tick)
		}
		handler(ctx, tick)
	}
}

func (m *Monitor) WithCandle(handler bus.CandleEventHandler) bus.CandleEventHandler {
	return func(ctx context.Context, candle common.Candle) {
		if m.flags&MonitorCandles != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "candle", candle)
		}
		handler(ctx, candle)
	}
}

func (m *Monitor) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, order common.Order) {
		if m.flags&MonitorOrders != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "order", order)
		}
		handler(ctx, order)
	}
}

func (m *Monitor) WithPositionUpdate(handler bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return func(ctx context.Context, position common.Position) {
		if m.flags&MonitorPositions != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "position", position)
		}
		handler(ctx, position)
	}
}

func (m *Monitor) WithMetrics(handler bus.MetricsEventHandler) bus.MetricsEventHandler {
	return func(ctx context.Context, metrics common.AccountMetrics) {
		if m.flags&MonitorMetrics != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "metrics", metrics)
		}
		handler(ctx, metrics)
	}
}

func (m *Monitor) WithLedgerEntry(handler bus.LedgerEventHandler) bus.LedgerEventHandler {
	return func(ctx context.Context, entry common.LedgerEntry) {
		if m.flags&MonitorLedger != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "ledger", entry)
		}
		handler(ctx, entry)
	}
}
