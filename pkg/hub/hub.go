package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait so the deadline keeps moving.
	pingPeriod = 50 * time.Second

	maxClientMessageSize = 4096
)

// Broadcaster fans a binary frame out to all connected viewers.
// Delivery is fire and forget.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// Session is one connected viewer. Writes are serialized by the session's
// own mutex so the hub never interleaves frames on a connection.
type Session struct {
	ID   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *Session) send(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Hub is the client registry: it tracks live sessions and pushes position
// frames to every one of them. A session that fails a write is dropped on
// the spot; reconnecting is the viewer's job.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	upgrader websocket.Upgrader
}

// NewHub creates an empty registry.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Viewers connect from arbitrary origins; there is no auth
			// layer in front of this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades an HTTP request and registers the session. It blocks in
// the read pump until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := &Session{ID: uuid.NewString(), conn: conn}
	h.register(s)
	defer h.Unregister(s.ID)

	conn.SetReadLimit(maxClientMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Inbound messages carry nothing the engine needs; the pump exists to
	// notice disconnects and service pings.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	count := len(h.sessions)
	h.mu.Unlock()

	sessionsGauge.Set(float64(count))
	slog.Info("Viewer connected", "sessionID", s.ID, "sessions", count)
}

// Unregister closes and removes a session. Safe to call twice.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return
	}
	s.conn.Close()
	sessionsGauge.Set(float64(count))
	slog.Info("Viewer disconnected", "sessionID", id, "sessions", count)
}

// Broadcast sends one binary frame to every session. Failed writes drop the
// session; no acknowledgement is awaited and nothing is retried.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	framesSent.Add(float64(len(targets)))
	bytesSent.Add(float64(len(frame) * len(targets)))
	for _, s := range targets {
		if err := s.send(websocket.BinaryMessage, frame); err != nil {
			sendFailures.Inc()
			slog.Warn("Dropping viewer after failed write", "sessionID", s.ID, "error", err)
			h.Unregister(s.ID)
		}
	}
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Run pings every session on a fixed cadence until the context ends, so
// half-dead connections get reaped by their read deadlines.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			targets := make([]*Session, 0, len(h.sessions))
			for _, s := range h.sessions {
				targets = append(targets, s)
			}
			h.mu.RUnlock()
			for _, s := range targets {
				if err := s.send(websocket.PingMessage, nil); err != nil {
					h.Unregister(s.ID)
				}
			}
		}
	}
}
