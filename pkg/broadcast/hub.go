package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meridianfx/meridian/pkg/common"
)

const hubComponentName = "broadcast.hub"

// Hub fans engine events out to websocket subscribers as JSON frames.
// Market data frames are filtered per symbol subscription, account
// frames only reach the client subscribed to that account. Its On*
// methods plug straight into the bus router.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "component", hubComponentName, "error", err)
		return
	}

	c := newClient(h, conn)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.disconnect()
	}
}

func (h *Hub) evict(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.disconnect()
}

func (h *Hub) OnTick(_ context.Context, tick common.Tick) {
	h.broadcast(FrameTick, tick, func(c *client) bool { return c.wantsSymbol(tick.Symbol) })
}

func (h *Hub) OnCandle(_ context.Context, candle common.Candle) {
	h.broadcast(FrameCandle, candle, func(c *client) bool { return c.wantsSymbol(candle.Symbol) })
}

func (h *Hub) OnOrderUpdate(_ context.Context, order common.Order) {
	h.broadcast(FrameOrder, order, func(c *client) bool { return c.wantsAccount(order.AccountID) })
}

func (h *Hub) OnPositionUpdate(_ context.Context, position common.Position) {
	h.broadcast(FramePosition, position, func(c *client) bool { return c.wantsAccount(position.AccountID) })
}

func (h *Hub) OnMetrics(_ context.Context, metrics common.AccountMetrics) {
	h.broadcast(FrameMetrics, metrics, func(c *client) bool { return c.wantsAccount(metrics.AccountID) })
}

func (h *Hub) OnLedgerEntry(_ context.Context, entry common.LedgerEntry) {
	h.broadcast(FrameLedger, entry, func(c *client) bool { return c.wantsAccount(entry.AccountID) })
}

func (h *Hub) broadcast(frameType FrameType, data any, wants func(*client) bool) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	frame, err := encodeFrame(frameType, data)
	if err != nil {
		slog.Warn("unable to encode frame", "component", hubComponentName, "type", frameType, "error", err)
		return
	}

	for _, c := range clients {
		if wants(c) {
			c.enqueue(frame)
		}
	}
}
