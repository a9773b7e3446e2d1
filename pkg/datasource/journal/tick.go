package journal

import (
	"time"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// BinaryTick is the fixed-width on-disk record, 8-byte fields only so
// the struct carries no padding and files are index-addressable.
type BinaryTick struct {
	TimeStamp int64
	Bid       float64
	Ask       float64
	Mid       float64
}

func (binaryTick BinaryTick) ToTick(symbol string, tick *common.Tick) {
	tick.Symbol = symbol
	tick.TimeStamp = time.Unix(0, binaryTick.TimeStamp)
	tick.Bid = fixed.FromFloat64(binaryTick.Bid)
	tick.Ask = fixed.FromFloat64(binaryTick.Ask)
	tick.Mid = fixed.FromFloat64(binaryTick.Mid)
}

func FromTick(tick common.Tick) BinaryTick {
	bid, _ := tick.Bid.Float64()
	ask, _ := tick.Ask.Float64()
	mid, _ := tick.Mid.Float64()
	return BinaryTick{
		TimeStamp: tick.TimeStamp.UnixNano(),
		Bid:       bid,
		Ask:       ask,
		Mid:       mid,
	}
}
