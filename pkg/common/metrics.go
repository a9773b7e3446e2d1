package common

import (
	"time"

	"github.com/meridianfx/meridian/pkg/utility"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// AccountMetrics is a point-in-time solvency snapshot for one account.
// MarginLevel is a percentage, zero by convention when no margin is used.
type AccountMetrics struct {
	AccountID       string       `json:"account_id"`
	State           AccountState `json:"state"`
	Balance         fixed.Point  `json:"balance"`
	Equity          fixed.Point  `json:"equity"`
	UsedMargin      fixed.Point  `json:"used_margin"`
	FreeMargin      fixed.Point  `json:"free_margin"`
	MarginLevel     fixed.Point  `json:"margin_level"`
	UnrealizedPnl   fixed.Point  `json:"unrealized_pnl"`
	RealizedPnl     fixed.Point  `json:"realized_pnl"`
	OpenPositions   int          `json:"open_positions"`
	Drawdown        fixed.Point  `json:"drawdown"`
	DrawdownPercent fixed.Point  `json:"drawdown_percent"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
