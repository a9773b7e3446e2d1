package synthetic

import (
	"errors"
	"sort"
	"sync"

	"github.com/meridianfx/meridian/pkg/common"
)

var ErrNoTick = errors.New("no current tick for instrument")

// Board holds the latest tick per symbol. Writes happen only from the
// generator goroutines, reads from everywhere; each entry is swapped as a
// whole so readers always see one consistent snapshot (last writer wins).
type Board struct {
	ticks sync.Map // symbol -> common.Tick
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Put(tick common.Tick) {
	b.ticks.Store(tick.Symbol, tick)
}

func (b *Board) Tick(symbol string) (common.Tick, error) {
	v, ok := b.ticks.Load(symbol)
	if !ok {
		return common.Tick{}, ErrNoTick
	}
	return v.(common.Tick), nil
}

func (b *Board) AllTicks() []common.Tick {
	var out []common.Tick
	b.ticks.Range(func(_, v any) bool {
		out = append(out, v.(common.Tick))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
