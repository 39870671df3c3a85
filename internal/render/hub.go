package render

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/sim"
	"github.com/gorilla/websocket"
)

// Hub streams frames as JSON text messages to every connected WebSocket
// client. New clients first receive the most recent frame.
//
// All socket writes happen on the Run goroutine.
type Hub struct {
	upgrader  websocket.Upgrader
	log       logging.Logger
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	done      chan struct{}

	mu     sync.RWMutex
	latest []byte

	connected atomic.Int64
	dropped   atomic.Uint64
}

func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:       log,
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 16),
		done:      make(chan struct{}),
	}
}

// Run services registrations and broadcasts until ctx is done, then closes
// every client. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for conn := range h.clients {
			h.drop(conn)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case conn := <-h.register:
			h.clients[conn] = true
			h.connected.Add(1)
			if latest := h.latestFrame(); latest != nil {
				h.send(ctx, conn, latest)
			}
		case conn := <-h.remove:
			h.drop(conn)
		case msg := <-h.broadcast:
			for conn := range h.clients {
				h.send(ctx, conn, msg)
			}
		}
	}
}

// Render implements sim.Renderer. It never blocks the tick: when clients
// fall behind, frames are dropped.
func (h *Hub) Render(ctx context.Context, f sim.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.latest = data
	h.mu.Unlock()

	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// ServeHTTP upgrades the request and registers the connection. Client
// messages are read and discarded; the read loop only detects closure.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug(context.Background(), "websocket client error", logging.Err(err))
				}
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.connected.Load()) }

// Dropped returns how many frames were skipped because the broadcast queue
// was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) latestFrame() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

func (h *Hub) send(ctx context.Context, conn *websocket.Conn, msg []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		h.log.Warn(ctx, "failed to send frame to websocket client", logging.Err(err))
		h.drop(conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	h.connected.Add(-1)
	conn.Close()
}
