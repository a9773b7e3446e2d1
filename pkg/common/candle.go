package common

import (
	"fmt"
	"strconv"
	"time"

	"github.com/meridianfx/meridian/pkg/utility"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// Timeframe is the textual bucket width of a candle, e.g. "1m" or "4h".
type Timeframe string

const (
	TimeframeM1  Timeframe = "1m"
	TimeframeM5  Timeframe = "5m"
	TimeframeM15 Timeframe = "15m"
	TimeframeH1  Timeframe = "1h"
	TimeframeH4  Timeframe = "4h"
	TimeframeD1  Timeframe = "1d"
)

// DefaultTimeframes are the buckets every tick stream is aggregated into.
var DefaultTimeframes = []Timeframe{
	TimeframeM1, TimeframeM5, TimeframeM15, TimeframeH1, TimeframeH4, TimeframeD1,
}

func (tf Timeframe) Duration() (time.Duration, error) {
	s := string(tf)
	if len(s) < 2 {
		return 0, fmt.Errorf("malformed timeframe %q", tf)
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("malformed timeframe %q", tf)
	}

	switch s[len(s)-1] {
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("malformed timeframe %q", tf)
	}
}

// Candle is one closed or in-progress OHLC bucket. A candle is unique per
// (symbol, timeframe, open time) and never mutated once its window closes.
type Candle struct {
	Timeframe Timeframe   `json:"timeframe"`
	OpenTime  time.Time   `json:"open_time"`
	CloseTime time.Time   `json:"close_time"`
	Open      fixed.Point `json:"open"`
	High      fixed.Point `json:"high"`
	Low       fixed.Point `json:"low"`
	Close     fixed.Point `json:"close"`
	Volume    fixed.Point `json:"volume"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
