package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"missionboard/internal/assign"
	"missionboard/internal/state"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.stores.Tasks.List()
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filtered := make([]state.Task, 0, len(tasks))
		for _, t := range tasks {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}
	task, ok := s.stores.Tasks.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "task_not_found", "no task with id "+taskID)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	if err := s.engine.RequestAssignment(r.Context(), taskID); err != nil {
		switch {
		case errors.Is(err, assign.ErrTaskNotFound):
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
		case errors.Is(err, assign.ErrAlreadyProcessing):
			respondError(w, http.StatusConflict, "already_processing", err.Error())
		case errors.Is(err, assign.ErrNotAssignable):
			respondError(w, http.StatusConflict, "not_assignable", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "assignment_failed", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"task_id": taskID,
		"status":  "assignment_requested",
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		respondJSON(w, http.StatusOK, map[string]any{"agents": s.stores.Agents.ActiveRoster()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agents": s.stores.Agents.All()})
}

func (s *Server) handleListTickets(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"tickets": s.stores.Tickets.List()})
}

func (s *Server) handleListApprovals(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"approvals": s.stores.Approvals.List()})
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("open") == "true" {
		respondJSON(w, http.StatusOK, map[string]any{"interactions": s.stores.Interactions.Open()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"interactions": s.stores.Interactions.List()})
}

func (s *Server) handleListChat(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"messages": s.stores.Chat.Messages()})
}

func (s *Server) handleListAgentLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": s.stores.AgentLogs.Recent(limit)})
}
