// Package api serves runs over HTTP as a thin JSON layer: every handler
// decodes, calls the engine or the store, and encodes. Game over travels in
// the state payload, never as an HTTP error.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/talgya/demesne/internal/court"
	"github.com/talgya/demesne/internal/engine"
	"github.com/talgya/demesne/internal/persistence"
	"github.com/talgya/demesne/internal/policy"
)

// Server exposes run creation and turn resolution.
type Server struct {
	Store *persistence.Store
	Port  int

	// Turn application is serialized per process; the engine itself is
	// single-threaded and the store holds the only shared state.
	mu sync.Mutex
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	createLimiter := NewRateLimiter(30, time.Hour)
	autoLimiter := NewRateLimiter(60, time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", rateLimited(createLimiter, s.handleCreateRun))
	mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/preview", s.handlePreview)
	mux.HandleFunc("GET /api/v1/runs/{id}/court", s.handleCourt)
	mux.HandleFunc("POST /api/v1/runs/{id}/turn", s.handleTurn)
	mux.HandleFunc("POST /api/v1/runs/{id}/auto", rateLimited(autoLimiter, s.handleAuto))
	return mux
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("http api starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type createRunRequest struct {
	Seed   string `json:"seed"`
	Policy string `json:"policy,omitempty"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Seed == "" {
		http.Error(w, "seed is required", http.StatusBadRequest)
		return
	}
	pol, err := policy.Resolve(req.Policy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state := engine.NewRun(req.Seed)
	id, err := s.Store.CreateRun(state, pol)
	if err != nil {
		slog.Error("create run failed", "seed", req.Seed, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	slog.Info("run created", "id", id, "seed", req.Seed, "policy", pol)
	writeJSON(w, map[string]any{"id": id, "state": state})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Store.ListRuns()
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, state)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, engine.ProposeTurn(state))
}

// handleCourt renders the current court roster. House log events from the
// last committed turn feed the widow badges.
func (s *Server) handleCourt(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	var houseLog []court.LogEvent
	if n := len(state.Log); n > 0 {
		houseLog = state.Log[n-1].Report.HouseLog
	}
	writeJSON(w, court.BuildRoster(&state.Registry, houseLog))
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var d engine.Decisions
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	next := engine.ApplyDecisions(state, d)
	if err := s.persistTurn(id, state, next); err != nil {
		slog.Error("commit turn failed", "id", id, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, turnResponse(next))
}

type autoRequest struct {
	Turns  int    `json:"turns"`
	Policy string `json:"policy,omitempty"`
}

func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	var req autoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Turns < 1 || req.Turns > 200 {
		http.Error(w, "turns must be 1-200", http.StatusBadRequest)
		return
	}
	pol, err := policy.Resolve(req.Policy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	played := 0
	for i := 0; i < req.Turns && state.Active(); i++ {
		ctx := engine.ProposeTurn(state)
		d, err := policy.Decide(pol, state, ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next := engine.ApplyDecisions(state, d)
		if err := s.persistTurn(id, state, next); err != nil {
			slog.Error("autoplay commit failed", "id", id, "turn", state.Turn, "error", err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		state = next
		played++
	}
	slog.Info("autoplay finished", "id", id, "policy", pol, "turns", played, "game_over", !state.Active())
	resp := turnResponse(state)
	resp["turns_played"] = played
	writeJSON(w, resp)
}

// persistTurn saves the advanced state and the turn snapshot it produced.
func (s *Server) persistTurn(id string, prev, next *engine.RunState) error {
	if next == prev {
		// Nothing advanced (finished run); nothing to write.
		return nil
	}
	if err := s.Store.SaveRun(id, next); err != nil {
		return err
	}
	if n := len(next.Log); n > 0 {
		if err := s.Store.SaveSnapshot(id, next.Log[n-1]); err != nil {
			return err
		}
	}
	return nil
}

func turnResponse(state *engine.RunState) map[string]any {
	resp := map[string]any{
		"turn":  state.Turn,
		"state": state,
	}
	if n := len(state.Log); n > 0 {
		resp["report"] = state.Log[n-1].Report
	}
	return resp
}

// loadRun fetches the run in the request path, writing the HTTP error itself
// when it cannot.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*engine.RunState, bool) {
	id := r.PathValue("id")
	state, err := s.Store.LoadRun(id)
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("load run failed", "id", id, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return nil, false
	}
	return state, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
