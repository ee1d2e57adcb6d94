package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rmax-ai/orbweaver/pkg/export"
	"github.com/rmax-ai/orbweaver/pkg/graph"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

// handleGraph serves one page of nodes plus the edges internal to it.
// Reads go through the position cache, so polling this endpoint does not
// contend with the simulation loop.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)
	writeJSON(w, http.StatusOK, s.svc.GraphPage(page, limit))
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	nodes, edges, err := s.svc.Rebuild(r.Context())
	if err != nil {
		if errors.Is(err, graph.ErrRebuildInProgress) {
			http.Error(w, `{"error":"rebuild_in_progress"}`, http.StatusConflict)
			return
		}
		slog.Error("Graph rebuild failed", "traceID", getTraceID(r.Context()), "error", err)
		http.Error(w, `{"error":"rebuild_failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, RebuildResponse{Status: "rebuilt", Nodes: nodes, Edges: edges})
}

// handlePositions accepts externally computed node positions. A batch the
// rate gate drops still returns 200: silent-drop semantics, the client
// should not retry.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req PositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Updates) == 0 {
		http.Error(w, `{"error":"missing_updates"}`, http.StatusBadRequest)
		return
	}

	applied := s.svc.UpdateNodePositions(req.Updates)
	writeJSON(w, http.StatusOK, PositionsResponse{Applied: applied})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	inst := s.currentInstance()
	if inst == nil {
		http.Error(w, `{"error":"no_simulation_instance"}`, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, inst.Diagnostics())
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	inst := s.currentInstance()
	if inst == nil {
		http.Error(w, `{"error":"no_simulation_instance"}`, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, inst.Params())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatJSON
	}
	writer, err := export.NewWriter(format)
	if err != nil {
		http.Error(w, `{"error":"unknown_format"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", writer.ContentType())
	if err := writer.Write(w, s.svc.Graph()); err != nil {
		slog.Error("Graph export failed", "traceID", getTraceID(r.Context()), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
