package common

import (
	"time"

	"github.com/meridianfx/meridian/pkg/utility"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// Tick is the current synthetic quote for one instrument. Ticks are
// ephemeral, only the latest per symbol is retained.
type Tick struct {
	Bid fixed.Point `json:"bid"`
	Ask fixed.Point `json:"ask"`
	Mid fixed.Point `json:"mid"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (t Tick) Spread() fixed.Point {
	return t.Ask.Sub(t.Bid)
}
