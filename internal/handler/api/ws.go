package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	models "Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	xlogger "Warboard/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	// Bounded per-client buffer. A full buffer drops the message so a
	// slow client never blocks the broadcaster.
	wsSendBuffer = 64
)

// wsEnvelope is the frame pushed to clients.
type wsEnvelope struct {
	Kind     string      `json:"kind"` // "snapshot" or "status"
	Source   string      `json:"source"`
	Payload  interface{} `json:"payload,omitempty"`
	Status   interface{} `json:"status,omitempty"`
	PushedAt time.Time   `json:"pushedAt"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans refreshed snapshots and status transitions out to connected
// WebSocket clients.
type Hub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub creates the WebSocket push hub.
func NewHub(logger *xlogger.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the connection and pumps broadcasts until the client
// disconnects.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return conn.Close()
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	h.readPump(client)
	return nil
}

// BroadcastSnapshot pushes a refreshed source payload to every client.
func (h *Hub) BroadcastSnapshot(s *models.Snapshot) {
	h.broadcast(wsEnvelope{
		Kind:     "snapshot",
		Source:   s.Source,
		Payload:  json.RawMessage(s.Payload),
		PushedAt: time.Now().UTC(),
	})
}

// BroadcastStatus pushes a pipeline status transition to every client.
func (h *Hub) BroadcastStatus(source string, info fetch.Info) {
	h.broadcast(wsEnvelope{
		Kind:     "status",
		Source:   source,
		Status:   info,
		PushedAt: time.Now().UTC(),
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) broadcast(env wsEnvelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal ws frame", xlogger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- raw:
		default:
			// Client buffer full, drop this frame for this client.
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// unregisters on disconnect.
func (h *Hub) readPump(client *wsClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}
