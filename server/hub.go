package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/biome/runner"
)

// Message is the envelope of every frame sent to websocket clients.
type Message struct {
	Type  string           `json:"type"` // "state" or "error"
	State *runner.Snapshot `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

// Hub fans runner snapshots out to websocket clients. Snapshots are
// coalesced: at most one is pushed per interval, always the latest.
type Hub struct {
	interval time.Duration
	current  func() runner.Snapshot

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{} // closed when Run returns

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex // per-connection write locks

	pendingMu sync.Mutex
	pending   *runner.Snapshot
}

// NewHub creates a hub. current supplies the snapshot sent to new clients.
func NewHub(interval time.Duration, current func() runner.Snapshot) *Hub {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Hub{
		interval:   interval,
		current:    current,
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Publish queues snap for the next broadcast, replacing any queued one.
func (h *Hub) Publish(snap runner.Snapshot) {
	h.pendingMu.Lock()
	h.pending = &snap
	h.pendingMu.Unlock()
}

// Register adds a connection. After Run has returned the connection is
// closed instead.
func (h *Hub) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run processes registrations and broadcasts until ctx is cancelled,
// then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = &sync.Mutex{}
			h.mu.Unlock()

			snap := h.current()
			h.Send(conn, Message{Type: "state", State: &snap})

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.pendingMu.Lock()
			snap := h.pending
			h.pending = nil
			h.pendingMu.Unlock()
			if snap != nil {
				h.broadcast(Message{Type: "state", State: snap})
			}
		}
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, mu := range h.clients {
		// A failed write closes the connection; its read loop then unregisters it.
		writeTo(conn, mu, data)
	}
}

// Send writes one message to a single client under its write lock.
func (h *Hub) Send(conn *websocket.Conn, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	mu, ok := h.clients[conn]
	h.mu.RUnlock()
	if ok {
		writeTo(conn, mu, data)
	}
}

func writeTo(conn *websocket.Conn, mu *sync.Mutex, data []byte) {
	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("websocket write failed", "remote", conn.RemoteAddr().String(), "error", err)
		conn.Close()
	}
}
