package broadcast

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBufferSize = 256
)

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once

	mu        sync.RWMutex
	symbols   map[string]struct{}
	accountID string
}

func newClient(hub *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		symbols: make(map[string]struct{}),
	}
}

// wantsSymbol reports whether the client subscribed to the symbol. No
// explicit symbol subscription means everything.
func (c *client) wantsSymbol(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[strings.ToUpper(symbol)]
	return ok
}

func (c *client) wantsAccount(accountID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID != "" && c.accountID == accountID
}

func (c *client) apply(sub subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.symbols = make(map[string]struct{}, len(sub.Symbols))
	for _, symbol := range sub.Symbols {
		c.symbols[strings.ToUpper(symbol)] = struct{}{}
	}
	c.accountID = sub.AccountID
}

// enqueue hands the frame to the write pump. A client whose buffer is
// full is too slow to keep up and gets evicted.
func (c *client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.hub.evict(c)
	}
}

// disconnect closes the connection, which unwinds both pumps. The send
// channel is never closed so concurrent enqueues stay safe.
func (c *client) disconnect() {
	c.closeOnce.Do(func() { _ = c.conn.Close() })
}

// readPump consumes subscription updates until the peer goes away.
func (c *client) readPump() {
	defer c.hub.evict(c)

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "component", hubComponentName, "error", err)
			}
			return
		}

		var sub subscription
		if err := json.Unmarshal(message, &sub); err != nil {
			slog.Debug("malformed subscription", "component", hubComponentName, "error", err)
			continue
		}
		c.apply(sub)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
