package bus

import (
	"context"

	"github.com/meridianfx/meridian/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type TickEventHandler EventHandler[common.Tick]
type CandleEventHandler EventHandler[common.Candle]
type OrderUpdateEventHandler EventHandler[common.Order]
type PositionUpdateEventHandler EventHandler[common.Position]
type MetricsEventHandler EventHandler[common.AccountMetrics]
type LedgerEventHandler EventHandler[common.LedgerEntry]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
