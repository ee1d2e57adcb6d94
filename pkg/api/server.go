// Package api is the daemon's HTTP surface: graph queries, simulation
// control, the WebSocket upgrade into the hub, metrics and exports.
package api

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/physics"
	"github.com/rmax-ai/orbweaver/pkg/service"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// Interfaces for dependencies to enable mocking

// GraphService is the simulation core as the handlers see it.
type GraphService interface {
	Rebuild(ctx context.Context) (nodes, edges int, err error)
	GraphPage(page, limit int) service.Page
	UpdateNodePositions(updates []service.NodeUpdate) bool
	Graph() *graph.GraphData
}

// SimInstance is the live simulation instance the handlers report on.
type SimInstance interface {
	ID() string
	Params() physics.SimulationParams
	Diagnostics() service.Diagnostics
}

// SessionHandler upgrades viewers into the broadcast hub.
type SessionHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server encapsulates the HTTP API server.
type Server struct {
	svc      GraphService
	sessions SessionHandler
	server   *http.Server
	version  string
	started  time.Time

	// instance is swapped on settings reload; nil until the first Start.
	instMu   sync.RWMutex
	instance SimInstance
}

// NewServer creates the API server on addr. An empty addr defaults to
// :8090.
func NewServer(svc GraphService, sessions SessionHandler, version, addr string) *Server {
	s := &Server{
		svc:      svc,
		sessions: sessions,
		version:  version,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/graph", s.handleGraph)
	mux.HandleFunc("/v1/graph/rebuild", s.handleRebuild)
	mux.HandleFunc("/v1/nodes/positions", s.handlePositions)
	mux.HandleFunc("/v1/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/v1/params", s.handleParams)
	mux.HandleFunc("/v1/export", s.handleExport)
	mux.Handle("/metrics", promhttp.Handler())
	if sessions != nil {
		mux.HandleFunc("/ws", sessions.ServeWS)
	}

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := withLogging(withRecovery(withSecureHeaders(mux)))

	if addr == "" {
		addr = ":8090"
	}
	s.server = &http.Server{
		Addr:    addr,
		Handler: handler,
		// No write timeout: /ws connections stream for the whole
		// viewer session.
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// SetInstance publishes the simulation instance the diagnostics and params
// handlers report on. Called at boot and again after a settings reload.
func (s *Server) SetInstance(inst SimInstance) {
	s.instMu.Lock()
	defer s.instMu.Unlock()
	s.instance = inst
}

func (s *Server) currentInstance() SimInstance {
	s.instMu.RLock()
	defer s.instMu.RUnlock()
	return s.instance
}

// Handler exposes the composed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server (blocking).
func (s *Server) Start() error {
	slog.Info("API server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("API server stopping")
	return s.server.Shutdown(ctx)
}

// Middleware: Panic Recovery
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered in handler", "error", err, "path", r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = generateTraceID()
		}
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		slog.Info("HTTP request",
			"traceID", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"durationMS", time.Since(start).Milliseconds())
	})
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback if random fails (unlikely)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures the HTTP status code for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade reach the underlying connection through
// the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
