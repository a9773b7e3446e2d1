package broadcast

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(message, &frame))
	return frame
}

func subscribe(t *testing.T, conn *websocket.Conn, sub subscription) {
	t.Helper()
	payload, err := json.Marshal(sub)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
	// The read pump applies the subscription asynchronously.
	time.Sleep(50 * time.Millisecond)
}

func TestHub_BroadcastsTicksToAllByDefault(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.OnTick(context.Background(), common.Tick{
		Symbol: "EURUSD",
		Bid:    fixed.FromFloat64(1.1000),
		Ask:    fixed.FromFloat64(1.1002),
	})

	frame := readFrame(t, conn)
	assert.Equal(t, FrameTick, frame.Type)

	var tick common.Tick
	require.NoError(t, json.Unmarshal(frame.Data, &tick))
	assert.Equal(t, "EURUSD", tick.Symbol)
}

func TestHub_SymbolFilter(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	subscribe(t, conn, subscription{Symbols: []string{"xauusd"}})

	ctx := context.Background()
	hub.OnTick(ctx, common.Tick{Symbol: "EURUSD"})
	hub.OnTick(ctx, common.Tick{Symbol: "XAUUSD"})

	frame := readFrame(t, conn)
	var tick common.Tick
	require.NoError(t, json.Unmarshal(frame.Data, &tick))
	assert.Equal(t, "XAUUSD", tick.Symbol)
}

func TestHub_AccountFramesRequireSubscription(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	ctx := context.Background()

	// No account subscribed, the order frame is withheld and the
	// following tick arrives first.
	hub.OnOrderUpdate(ctx, common.Order{AccountID: "acc-1"})
	hub.OnTick(ctx, common.Tick{Symbol: "EURUSD"})
	assert.Equal(t, FrameTick, readFrame(t, conn).Type)

	subscribe(t, conn, subscription{AccountID: "acc-1"})

	hub.OnOrderUpdate(ctx, common.Order{AccountID: "acc-2"})
	hub.OnOrderUpdate(ctx, common.Order{AccountID: "acc-1"})

	frame := readFrame(t, conn)
	assert.Equal(t, FrameOrder, frame.Type)

	var order common.Order
	require.NoError(t, json.Unmarshal(frame.Data, &order))
	assert.Equal(t, "acc-1", order.AccountID)
}

func TestHub_MetricsAndLedgerFrames(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	subscribe(t, conn, subscription{AccountID: "acc-1"})

	ctx := context.Background()
	hub.OnMetrics(ctx, common.AccountMetrics{AccountID: "acc-1", Balance: fixed.FromInt(10000, 0)})
	hub.OnLedgerEntry(ctx, common.LedgerEntry{AccountID: "acc-1", EntryType: common.LedgerEntryDeposit})

	assert.Equal(t, FrameMetrics, readFrame(t, conn).Type)
	assert.Equal(t, FrameLedger, readFrame(t, conn).Type)
}

func TestHub_ShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.Shutdown()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
