package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility"
)

const playerComponentName = "journal.player"

// Player replays one captured journal into the event bus, in record
// order, stamping a fresh trace per tick. The replayed stream drives
// the same consumers the live simulator does.
type Player struct {
	router *bus.Router
	symbol string
	reader *Reader
}

func NewPlayer(router *bus.Router, symbol, path string) *Player {
	return &Player{
		router: router,
		symbol: symbol,
		reader: NewReader(path),
	}
}

func (p *Player) Replay(ctx context.Context) error {
	if err := p.reader.Open(); err != nil {
		return err
	}
	defer p.reader.Close()

	var record BinaryTick
	for index := int64(0); ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.reader.Read(index, &record)
		if err == ErrEof {
			slog.Info("replay finished",
				"component", playerComponentName, "symbol", p.symbol, "ticks", index)
			return nil
		}
		if err != nil {
			return fmt.Errorf("unable to replay %s: %w", p.symbol, err)
		}

		var tick common.Tick
		record.ToTick(p.symbol, &tick)
		tick.Source = playerComponentName
		tick.ExecutionID = utility.GetExecutionID()
		tick.TraceID = utility.CreateTraceID()

		if err := p.router.Post(bus.TickEvent, tick); err != nil {
			return fmt.Errorf("unable to post replayed tick: %w", err)
		}
	}
}
