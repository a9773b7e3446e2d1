package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type TradeID = uuid.UUID

type TradeKind string

const (
	TradeKindOpen         TradeKind = "open"
	TradeKindClose        TradeKind = "close"
	TradeKindPartialClose TradeKind = "partial_close"
)

// Trade is the immutable record of a single execution, one per fill or
// close, kept for the journal view.
type Trade struct {
	ID          TradeID     `json:"id" db:"id"`
	AccountID   string      `json:"account_id" db:"account_id"`
	Symbol      string      `json:"symbol" db:"symbol"`
	PositionID  PositionID  `json:"position_id" db:"position_id"`
	OrderID     OrderID     `json:"order_id,omitempty" db:"order_id"`
	Side        OrderSide   `json:"side" db:"side"`
	Kind        TradeKind   `json:"kind" db:"kind"`
	Quantity    fixed.Point `json:"quantity" db:"quantity"`
	Price       fixed.Point `json:"price" db:"price"`
	RealizedPnl fixed.Point `json:"realized_pnl,omitempty" db:"realized_pnl"`
	ExecutedAt  time.Time   `json:"executed_at" db:"executed_at"`
}
