package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"parking-system/internal/logging"
	"parking-system/internal/parking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The boundary is pre-authenticated; cross-origin display clients are
	// expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts engine events to connected websocket clients so displays
// can react to issuance and retirement without polling.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsConn]struct{}
}

// wsConn wraps a websocket connection with a write mutex to serialize writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsConn]struct{})}
}

// Notify implements parking.Subscriber: each event is fanned out to every
// connected client. Dead connections are dropped on write failure.
func (h *Hub) Notify(e parking.Event) {
	h.mu.Lock()
	clients := make([]*wsConn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.conn.WriteJSON(e)
		c.mu.Unlock()
		if err != nil {
			logging.Logger().Warn().Err(err).Msg("ws: dropping client after write failure")
			h.remove(c)
		}
	}
}

func (h *Hub) add(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		c.conn.Close()
		delete(h.clients, c)
	}
}

// HandleEvents upgrades the request to a websocket and streams engine events
// until the client goes away.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error(r.Context()).Err(err).Msg("ws: upgrade failed")
		return
	}

	c := &wsConn{conn: conn}
	h.add(c)

	// Clients only listen; the read loop exists to detect disconnects.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
