package dashboard

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agent-console/internal/catalog"
	"github.com/sells-group/agent-console/internal/history"
	"github.com/sells-group/agent-console/internal/mccflow"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/preview"
	"github.com/sells-group/agent-console/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type indexView struct {
	Pages []catalog.Page
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.views.render(w, http.StatusOK, "index.html", indexView{Pages: s.catalog.Pages()})
}

// page resolves the {slug} URL parameter, answering 404 itself when the
// slug is unknown.
func (s *Server) page(w http.ResponseWriter, r *http.Request) (catalog.Page, bool) {
	slug := chi.URLParam(r, "slug")
	p, ok := s.catalog.Get(slug)
	if !ok {
		s.renderError(w, http.StatusNotFound, "Unknown agent", fmt.Sprintf("No agent page named %q.", slug))
	}
	return p, ok
}

// livePage is page restricted to agents backed by the task API.
func (s *Server) livePage(w http.ResponseWriter, r *http.Request) (catalog.Page, bool) {
	p, ok := s.page(w, r)
	if ok && !p.Live {
		s.renderError(w, http.StatusNotFound, p.Title, p.Title+" has no live task history.")
		return p, false
	}
	return p, ok
}

func (s *Server) agentView(r *http.Request, p catalog.Page, tab string) AgentView {
	v := AgentView{
		Pages:  s.catalog.Pages(),
		Page:   p,
		Tabs:   catalog.PageTabs,
		Active: catalog.ParseTab(tab),
	}
	if p.Live && v.Active == catalog.TabOverview {
		v.Live = s.loadTasks(r.Context(), p.AgentType, pageParam(r))
	}
	return v
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	v := s.agentView(r, p, r.URL.Query().Get("tab"))
	if id := r.URL.Query().Get("created"); id != "" {
		v.Notice = fmt.Sprintf("Task %s submitted.", id)
	}
	s.views.render(w, http.StatusOK, "agent.html", v)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	p, ok := s.livePage(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, p.Title, "Could not read the submitted form.")
		return
	}

	form := Form{
		Topic:   strings.TrimSpace(r.PostForm.Get("topic")),
		Filters: r.PostForm.Get("filters"),
	}
	fail := func(status int, msg string) {
		v := s.agentView(r, p, catalog.TabOverview)
		form.Error = msg
		v.Form = form
		s.views.render(w, status, "agent.html", v)
	}

	if form.Topic == "" {
		fail(http.StatusBadRequest, "Topic is required.")
		return
	}
	filters, err := model.ParseFilters(strings.Split(form.Filters, "\n"))
	if err != nil {
		fail(http.StatusBadRequest, "Filters must be key=value, one per line.")
		return
	}

	task, err := s.agents.Execute(r.Context(), p.AgentType, model.ExecuteRequest{
		Action: model.ActionSiteScan,
		Input:  model.TaskInput{Topic: form.Topic, Filters: filters},
	})
	if err != nil {
		zap.L().Warn("dashboard: create task", zap.String("agent", p.Slug), zap.Error(err))
		fail(http.StatusBadGateway, "Failed to create task: "+eris.Cause(err).Error())
		return
	}

	zap.L().Info("dashboard: task created", zap.String("task_id", task.ID), zap.String("topic", form.Topic))
	s.hub.Broadcast(Event{Type: EventTasksRefresh, TaskID: task.ID})
	http.Redirect(w, r, "/agents/"+p.Slug+"?created="+url.QueryEscape(task.ID), http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.livePage(w, r)
	if !ok {
		return
	}
	tl := s.loadTasks(r.Context(), p.AgentType, pageParam(r))
	if tl.Error != "" {
		http.Error(w, tl.Error, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-tasks-page-%d.xlsx"`, p.Slug, tl.Pager.Page))
	if err := history.ExportXLSX(w, tl.Rows); err != nil {
		zap.L().Error("dashboard: export tasks", zap.Error(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rv := s.loadReport(r.Context(), chi.URLParam(r, "id"), report.ParseTab(r.URL.Query().Get("tab")))
	status := http.StatusOK
	if rv.Error != "" {
		status = rv.status
	}
	s.views.render(w, status, "report.html", rv)
}

func (s *Server) handleFinalizeMcc(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "Report", "Could not read the submitted form.")
		return
	}

	rv := s.loadReport(r.Context(), id, report.ParseTab(r.PostForm.Get("tab")))
	if rv.Error != "" {
		s.views.render(w, rv.status, "report.html", rv)
		return
	}

	wf := rv.Mcc
	wf.Select(strings.TrimSpace(r.PostForm.Get("mcc_code")))
	wf.SetReason(r.PostForm.Get("override_reason"))

	status := http.StatusOK
	refresh, err := wf.Submit(r.Context(), s.compliance, id, s.operator)
	switch {
	case err == nil:
	case eris.Is(err, mccflow.ErrNoSelection), eris.Is(err, mccflow.ErrReasonRequired):
		status = http.StatusUnprocessableEntity
	default:
		zap.L().Warn("dashboard: finalize mcc", zap.String("task_id", id), zap.Error(err))
		wf.Message = "Failed to save MCC: " + eris.Cause(err).Error()
		status = upstreamStatus(err)
	}
	if refresh {
		zap.L().Info("dashboard: mcc finalized",
			zap.String("task_id", id),
			zap.String("mcc_code", wf.Selected),
			zap.String("source", string(wf.Source())),
		)
		s.hub.Broadcast(Event{Type: EventTasksRefresh, TaskID: id})
	}
	s.views.render(w, status, "report.html", rv)
}

type previewView struct {
	Pages   []catalog.Page
	Preview preview.Preview
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	pv := preview.New(s.proxyBase, r.URL.Query().Get("url"))
	status := http.StatusOK
	if !pv.Valid {
		status = http.StatusBadRequest
	}
	s.views.render(w, status, "preview.html", previewView{Pages: s.catalog.Pages(), Preview: pv})
}

// pageParam reads ?page=, treating anything unparsable as page 1.
func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return p
}
