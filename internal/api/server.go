// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/engine"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/persistence"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim        *engine.Simulation
	Eng        *engine.Engine
	DB         *persistence.DB // optional; history endpoints need it
	RunID      string
	Port       int
	AdminKey   string // Bearer token for POST endpoints. Empty = POST disabled.
	MaxStreams int    // Concurrent websocket streams. 0 = unlimited.

	streams  atomic.Int32
	upgrader websocket.Upgrader
	http     *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	commandLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/recognitions", s.handleRecognitions)
	mux.HandleFunc("/api/v1/gatherings", s.handleGatherings)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/tally", s.handleTally)

	// Websocket stream of cycle reports.
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// GET lists live events; POST (bearer token) queues a new one.
	mux.HandleFunc("/api/v1/events", s.adminOnly(RateLimitMiddleware(commandLimiter, s.handleEvents, http.MethodPost)))
	mux.HandleFunc("/api/v1/pause", s.adminOnly(s.handlePause))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.http = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "max_streams", s.MaxStreams)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "control endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	status := map[string]any{
		"name":    "crowdsense",
		"run_id":  s.RunID,
		"cycle":   st.Cycle,
		"running": s.Eng != nil && s.Eng.Running(),
		"paused":  s.Eng != nil && s.Eng.Paused(),
		"sim":     st,
	}
	writeJSON(w, status)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		evs := s.Sim.Events()
		if kind := r.URL.Query().Get("kind"); kind != "" {
			evs = lo.Filter(evs, func(e *events.Event, _ int) bool { return e.Kind.String() == kind })
		}
		writeJSON(w, evs)
	case http.MethodPost:
		var cmd events.CreateCommand
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cmd); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.Sim.Submit(cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Info("event command queued", "kind", cmd.Kind, "origin", cmd.Origin)
		writeJSONStatus(w, http.StatusAccepted, map[string]any{
			"queued":         true,
			"kind":           cmd.Kind,
			"perceived_from": s.Sim.CurrentCycle() + 2,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	all := s.Sim.Agents()
	offset := queryInt(r, "offset", 0, 0, len(all))
	limit := queryInt(r, "limit", 100, 1, 1000)
	end := min(offset+limit, len(all))
	writeJSON(w, map[string]any{
		"total":  len(all),
		"agents": all[offset:end],
	})
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/agent/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	view, ok := s.Sim.Agent(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleRecognitions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1, 500)
	writeJSON(w, s.Sim.Recent(limit, r.URL.Query().Get("event")))
}

func (s *Server) handleGatherings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Gatherings())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	rows, err := s.DB.Stats(s.RunID, queryInt(r, "limit", 100, 1, 5000))
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	rows, err := s.DB.Tally(s.RunID)
	if err != nil {
		slog.Error("tally query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if s.Eng == nil {
		http.Error(w, "no engine", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.Eng.SetPaused(req.Paused)
	slog.Info("pause changed via API", "paused", req.Paused)
	writeJSON(w, map[string]any{"paused": req.Paused})
}

// queryInt reads an integer query parameter, falling back to def when it is
// absent or malformed, and clamping it into [floor, ceil].
func queryInt(r *http.Request, name string, def, floor, ceil int) int {
	v := def
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			v = n
		}
	}
	return max(floor, min(v, ceil))
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
