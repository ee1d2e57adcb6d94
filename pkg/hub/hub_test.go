package hub

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial test server: %v", err)
	}
	return conn
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Session count never reached %d, at %d", want, h.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesAllSessions(t *testing.T) {
	// 1. Hub behind a real HTTP server
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	// 2. Two viewers connect
	c1 := dialTestServer(t, srv)
	defer c1.Close()
	c2 := dialTestServer(t, srv)
	defer c2.Close()
	waitForCount(t, h, 2)

	// 3. One broadcast lands on both as a binary message
	frame := []byte{1, 2, 3, 4, 5}
	h.Broadcast(frame)

	for i, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(3 * time.Second))
		mt, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("Viewer %d read failed: %v", i+1, err)
		}
		if mt != websocket.BinaryMessage {
			t.Errorf("Viewer %d: expected binary message, got type %d", i+1, mt)
		}
		if !bytes.Equal(data, frame) {
			t.Errorf("Viewer %d: frame mismatch: %v", i+1, data)
		}
	}
}

func TestHub_DisconnectPrunesSession(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	c := dialTestServer(t, srv)
	waitForCount(t, h, 1)

	// Closing the client ends the read pump, which unregisters
	c.Close()
	waitForCount(t, h, 0)

	// Broadcasting into an empty hub is a no-op
	h.Broadcast([]byte("nobody home"))
}

func TestHub_UnregisterTwiceSafe(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	c := dialTestServer(t, srv)
	defer c.Close()
	waitForCount(t, h, 1)

	var id string
	h.mu.RLock()
	for sid := range h.sessions {
		id = sid
	}
	h.mu.RUnlock()

	h.Unregister(id)
	h.Unregister(id)
	if h.Count() != 0 {
		t.Errorf("Expected empty hub, got %d", h.Count())
	}
}

func TestMultiBroadcaster(t *testing.T) {
	var a, b [][]byte
	ba := broadcastFunc(func(f []byte) { a = append(a, f) })
	bb := broadcastFunc(func(f []byte) { b = append(b, f) })

	m := MultiBroadcaster{ba, bb}
	m.Broadcast([]byte("x"))

	if len(a) != 1 || len(b) != 1 {
		t.Errorf("Expected both targets to receive the frame: %d, %d", len(a), len(b))
	}
}

type broadcastFunc func([]byte)

func (f broadcastFunc) Broadcast(frame []byte) { f(frame) }
