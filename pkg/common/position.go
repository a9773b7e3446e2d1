package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type PositionID = uuid.UUID

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is the netted exposure of one account on one (symbol, side).
// At most one open position exists per (account, symbol, side).
type Position struct {
	ID            PositionID     `json:"id" db:"id"`
	AccountID     string         `json:"account_id" db:"account_id"`
	Symbol        string         `json:"symbol" db:"symbol"`
	Side          OrderSide      `json:"side" db:"side"`
	Status        PositionStatus `json:"status" db:"status"`
	Quantity      fixed.Point    `json:"quantity" db:"quantity"`
	AvgEntryPrice fixed.Point    `json:"avg_entry_price" db:"avg_entry_price"`
	CurrentPrice  fixed.Point    `json:"current_price" db:"current_price"`
	UnrealizedPnl fixed.Point    `json:"unrealized_pnl" db:"unrealized_pnl"`
	RealizedPnl   fixed.Point    `json:"realized_pnl" db:"realized_pnl"`
	SwapAccrued   fixed.Point    `json:"swap_accrued" db:"swap_accrued"`

	// Stored for the client, nothing evaluates these against ticks yet.
	TakeProfit   fixed.Point `json:"take_profit,omitempty" db:"take_profit"`
	StopLoss     fixed.Point `json:"stop_loss,omitempty" db:"stop_loss"`
	TrailingStop fixed.Point `json:"trailing_stop,omitempty" db:"trailing_stop"`

	OpenedAt time.Time `json:"opened_at" db:"opened_at"`
	ClosedAt time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Notional is mark price x quantity x contract size.
func (p Position) Notional(contractSize fixed.Point) fixed.Point {
	return p.CurrentPrice.Mul(p.Quantity).Mul(contractSize)
}
