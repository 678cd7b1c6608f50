package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"missionboard/internal/assign"
	"missionboard/internal/config"
	"missionboard/internal/observability"
	"missionboard/internal/syncer"
)

// SyncController is the narrow view of the sync client the API needs.
type SyncController interface {
	Status() syncer.Status
	RequestReconnect()
}

type Server struct {
	cfg     config.Config
	sync    SyncController
	engine  *assign.Engine
	stores  syncer.Stores
	metrics *observability.Metrics
}

func New(cfg config.Config, sync SyncController, engine *assign.Engine, stores syncer.Stores, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		sync:    sync,
		engine:  engine,
		stores:  stores,
		metrics: metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Get("/v1/connection", s.handleConnection)
	r.Post("/v1/connection/reconnect", s.handleReconnect)

	r.Get("/v1/tasks", s.handleListTasks)
	r.Get("/v1/tasks/{id}", s.handleGetTask)
	r.Post("/v1/tasks/{id}/assign", s.handleAssignTask)

	r.Get("/v1/agents", s.handleListAgents)
	r.Get("/v1/tickets", s.handleListTickets)
	r.Get("/v1/approvals", s.handleListApprovals)
	r.Get("/v1/interactions", s.handleListInteractions)
	r.Get("/v1/chat", s.handleListChat)
	r.Get("/v1/logs", s.handleListAgentLogs)

	r.Get("/v1/assignment/mode", s.handleGetAssignMode)
	r.Put("/v1/assignment/mode", s.handleSetAssignMode)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sync_state": string(s.sync.Status().State),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	status := s.sync.Status()
	if status.State != syncer.StateConnected {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     "not_ready",
			"sync_state": string(status.State),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"sync_state": string(status.State),
	})
}

func (s *Server) handleConnection(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	s.sync.RequestReconnect()
	respondJSON(w, http.StatusAccepted, map[string]any{
		"status": "reconnect_requested",
	})
}

func (s *Server) handleGetAssignMode(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"mode": string(s.engine.Mode())})
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetAssignMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != string(assign.ModeGlobal) && mode != string(assign.ModeManual) {
		respondError(w, http.StatusBadRequest, "invalid_mode", "mode must be global or manual")
		return
	}
	s.engine.SetMode(assign.Mode(mode))
	respondJSON(w, http.StatusOK, map[string]any{"mode": mode})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
