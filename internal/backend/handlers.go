package backend

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agent-console/internal/httpx"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/store"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.Context())
	if err != nil {
		s.internalError(w, "list agents", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, agents)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	agentType := model.AgentType(chi.URLParam(r, "type"))

	var req model.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Input.Topic = strings.TrimSpace(req.Input.Topic)
	if req.Input.Topic == "" {
		httpx.WriteError(w, http.StatusBadRequest, "input.topic is required")
		return
	}
	if req.Action == "" {
		req.Action = DefaultAction
	}

	agent, err := s.store.GetAgentByType(r.Context(), agentType)
	if eris.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "unknown agent type "+string(agentType))
		return
	}
	if err != nil {
		s.internalError(w, "get agent", err)
		return
	}

	task, err := s.store.CreateTask(r.Context(), agent.ID, req.Action, req.Input)
	if err != nil {
		s.internalError(w, "create task", err)
		return
	}
	zap.L().Info("backend: task queued",
		zap.String("task_id", task.ID),
		zap.String("agent", string(agentType)),
		zap.String("topic", task.Input.Topic),
	)
	httpx.WriteJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 10)
	if err != nil || limit < 1 {
		httpx.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	filter := store.TaskFilter{
		AgentID: q.Get("agentId"),
		Status:  model.TaskStatus(q.Get("status")),
		Limit:   min(limit, MaxPageSize),
		Offset:  offset,
	}
	tasks, total, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		s.internalError(w, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	httpx.WriteJSON(w, http.StatusOK, model.TaskPage{Tasks: tasks, Total: total})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.task(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

func (s *Server) handleGetMccDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.store.GetMccDecision(r.Context(), id)
	if eris.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "no MCC decision for task "+id)
		return
	}
	if err != nil {
		s.internalError(w, "get mcc decision", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (s *Server) handleFinalizeMcc(w http.ResponseWriter, r *http.Request) {
	task, ok := s.task(w, r)
	if !ok {
		return
	}

	var d model.MccDecision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	d.TaskID = task.ID
	d.MccCode = strings.TrimSpace(d.MccCode)
	d.OverrideReason = strings.TrimSpace(d.OverrideReason)
	d.SelectedBy = strings.TrimSpace(d.SelectedBy)
	if d.Source == "" {
		d.Source = model.MccSourceSystem
	}

	if msg := s.validateDecision(r, d); msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	saved, err := s.store.SaveMccDecision(r.Context(), d)
	if err != nil {
		s.internalError(w, "save mcc decision", err)
		return
	}
	zap.L().Info("backend: mcc finalized",
		zap.String("task_id", saved.TaskID),
		zap.String("mcc_code", saved.MccCode),
		zap.String("source", string(saved.Source)),
		zap.String("selected_by", saved.SelectedBy),
	)
	httpx.WriteJSON(w, http.StatusOK, saved)
}

// validateDecision returns a client-facing message for an invalid decision.
func (s *Server) validateDecision(r *http.Request, d model.MccDecision) string {
	if d.MccCode == "" {
		return "mcc_code is required"
	}
	switch d.Source {
	case model.MccSourceSystem:
	case model.MccSourceOverride:
		if d.OverrideReason == "" {
			return "override_reason is required for a manual override"
		}
	default:
		return "source must be " + string(model.MccSourceSystem) + " or " + string(model.MccSourceOverride)
	}
	rec, err := s.store.GetMcc(r.Context(), d.MccCode)
	if err != nil || !rec.Active {
		return "unknown MCC code " + d.MccCode
	}
	return ""
}

func (s *Server) handleListMccs(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	mccs, err := s.store.ListMccs(r.Context(), activeOnly)
	if err != nil {
		s.internalError(w, "list mccs", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mccs)
}

// task loads the {id} task, writing 404 or 500 itself when it cannot.
func (s *Server) task(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id := chi.URLParam(r, "id")
	task, err := s.store.GetTask(r.Context(), id)
	if eris.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "task "+id+" not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, "get task", err)
		return nil, false
	}
	return task, true
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	zap.L().Error("backend: "+action, zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, action+" failed")
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
