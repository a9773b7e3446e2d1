package exchange

import (
	"context"

	"github.com/meridianfx/meridian/pkg/common"
)

// QuoteProvider hands out the latest tick per symbol. Implemented by the
// synthetic engine's tick board.
type QuoteProvider interface {
	Tick(symbol string) (common.Tick, error)
}

// Write-side storage consumed by the exchange. Upserts are keyed by id so
// a replayed write is a no-op.
type AccountStore interface {
	UpsertAccount(ctx context.Context, account common.Account) error
}

type OrderStore interface {
	UpsertOrder(ctx context.Context, order common.Order) error
}

type PositionStore interface {
	UpsertPosition(ctx context.Context, position common.Position) error
}

type TradeStore interface {
	InsertTrade(ctx context.Context, trade common.Trade) error
}
