package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

func tickAt(symbol string, bid, ask float64, at time.Time) common.Tick {
	return common.Tick{
		Symbol:    symbol,
		Bid:       fixed.FromFloat64(bid),
		Ask:       fixed.FromFloat64(ask),
		Mid:       fixed.FromFloat64((bid + ask) / 2),
		TimeStamp: at,
	}
}

func TestRecorder_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(dir)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		bid := 1.1000 + float64(i)*0.0001
		require.NoError(t, recorder.Append(tickAt("EURUSD", bid, bid+0.0002, base.Add(time.Duration(i)*time.Second))))
	}
	recorder.Close()

	path := FileName(dir, "EURUSD")
	count, err := EntryCount(path)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)

	reader := NewReader(path)
	require.NoError(t, reader.Open())
	defer reader.Close()
	assert.Equal(t, int64(10), reader.Len())

	var record BinaryTick
	require.NoError(t, reader.Read(3, &record))

	var tick common.Tick
	record.ToTick("EURUSD", &tick)
	assert.Equal(t, "EURUSD", tick.Symbol)
	assert.Equal(t, base.Add(3*time.Second).UnixNano(), tick.TimeStamp.UnixNano())
	require.True(t, tick.Bid.Eq(fixed.FromFloat64(1.1003)))

	require.ErrorIs(t, reader.Read(10, &record), ErrEof)
}

func TestRecorder_SplitsPerSymbol(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(dir)
	now := time.Now()

	require.NoError(t, recorder.Append(tickAt("EURUSD", 1.1, 1.1002, now)))
	require.NoError(t, recorder.Append(tickAt("XAUUSD", 2000, 2000.5, now)))
	require.NoError(t, recorder.Append(tickAt("EURUSD", 1.2, 1.2002, now)))
	recorder.Close()

	count, err := EntryCount(FileName(dir, "EURUSD"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = EntryCount(FileName(dir, "XAUUSD"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReader_TruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BROKEN.tickj")
	require.NoError(t, os.WriteFile(path, make([]byte, int(recordSize)+5), 0o644))

	_, err := EntryCount(path)
	require.Error(t, err)
	require.Error(t, NewReader(path).Open())
}

func TestPlayer_ReplayPostsTicks(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(dir)
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, recorder.Append(tickAt("EURUSD", 1.1, 1.1002, base.Add(time.Duration(i)*time.Second))))
	}
	recorder.Close()

	router := bus.NewRouter(64)
	received := make(chan common.Tick, 8)
	router.OnTick = func(_ context.Context, tick common.Tick) {
		received <- tick
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router.Exec(ctx)

	player := NewPlayer(router, "EURUSD", FileName(dir, "EURUSD"))
	require.NoError(t, player.Replay(ctx))

	for i := 0; i < 5; i++ {
		select {
		case tick := <-received:
			assert.Equal(t, "EURUSD", tick.Symbol)
			assert.Equal(t, playerComponentName, tick.Source)
		case <-time.After(time.Second):
			t.Fatalf("tick %d not dispatched", i)
		}
	}
}
