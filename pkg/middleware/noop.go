package middleware

import (
	"context"

	"github.com/meridianfx/meridian/pkg/common"
)

//goland:noinspection ALL
var (
	NoopTickHdl     = func(context.Context, common.Tick) {}
	NoopCandleHdl   = func(context.Context, common.Candle) {}
	NoopOrderHdl    = func(context.Context, common.Order) {}
	NoopPositionHdl = func(context.Context, common.Position) {}
	NoopMetricsHdl  = func(context.Context, common.AccountMetrics) {}
	NoopLedgerHdl   = func(context.Context, common.LedgerEntry) {}
)
