package dashboard

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/agent-console/internal/catalog"
	"github.com/sells-group/agent-console/internal/history"
	"github.com/sells-group/agent-console/internal/mccflow"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/pager"
	"github.com/sells-group/agent-console/internal/preview"
	"github.com/sells-group/agent-console/internal/report"
)

// TaskList is the live task history of an agent page. When Error is set
// nothing else is rendered.
type TaskList struct {
	Agent *model.Agent
	Rows  []history.Row
	Pager pager.Pager
	First int
	Last  int
	Error string
}

// Form is the state of the task creation form.
type Form struct {
	Topic   string
	Filters string
	Error   string
}

// AgentView is an agent page with its active layout tab.
type AgentView struct {
	Pages  []catalog.Page
	Page   catalog.Page
	Tabs   []string
	Active string
	// Live is set for pages backed by the task API.
	Live   *TaskList
	Form   Form
	Notice string
}

// ReportView is the report modal of one task.
type ReportView struct {
	Pages    []catalog.Page
	TaskID   string
	Task     *model.Task
	Report   report.View
	Preview  preview.Preview
	Mcc      *mccflow.Workflow
	MccError string
	Error    string

	status int
}

// loadTasks fetches one page of the agent's tasks. Errors are captured
// into the result, never retried.
func (s *Server) loadTasks(ctx context.Context, t model.AgentType, page int) *TaskList {
	tl := &TaskList{Pager: pager.New(page, s.pageSize, 0)}

	agent, err := s.agents.FindAgent(ctx, t)
	if err != nil {
		zap.L().Warn("dashboard: load agent", zap.String("type", string(t)), zap.Error(err))
		tl.Error = loadError("agent", err)
		return tl
	}
	tl.Agent = agent

	tp, err := s.agents.ListTasks(ctx, agent.ID, tl.Pager.Limit, tl.Pager.Offset())
	if err != nil {
		zap.L().Warn("dashboard: load tasks", zap.String("agent_id", agent.ID), zap.Error(err))
		tl.Error = loadError("tasks", err)
		return tl
	}

	tl.Pager = tl.Pager.WithTotal(tp.Total)
	tl.Rows = history.FromTasks(tp.Tasks)
	tl.First, tl.Last = tl.Pager.Range()
	return tl
}

// loadReport fetches the task and the active MCC list concurrently. A
// failed MCC fetch only disables the finalization form.
func (s *Server) loadReport(ctx context.Context, id string, tab report.Tab) *ReportView {
	rv := &ReportView{Pages: s.catalog.Pages(), TaskID: id}

	var (
		task    *model.Task
		mccs    []model.MccRecord
		mccsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		task, err = s.agents.GetTask(gctx, id)
		return err
	})
	g.Go(func() error {
		// Not returned to the group so a bad MCC list never cancels the task fetch.
		mccs, mccsErr = s.compliance.ListMccs(gctx, true)
		return nil
	})
	if err := g.Wait(); err != nil {
		zap.L().Warn("dashboard: load task", zap.String("task_id", id), zap.Error(err))
		rv.Error = loadError("task", err)
		rv.status = upstreamStatus(err)
		return rv
	}

	rv.Task = task
	doc := report.FromTask(*task)
	rv.Report = doc.View(tab)
	rv.Preview = preview.New(s.proxyBase, previewTarget(doc, task))
	rv.Mcc = mccflow.New(doc.PrimaryMccCode(), mccs)
	if mccsErr != nil {
		zap.L().Warn("dashboard: load mccs", zap.Error(mccsErr))
		rv.MccError = loadError("MCC list", mccsErr)
	}
	return rv
}

// previewTarget prefers the scanned base URL, then a url filter, then the
// topic itself. Bare domains get an https scheme.
func previewTarget(doc report.Document, t *model.Task) string {
	if doc.Scan != nil && doc.Scan.BaseURL != "" {
		return doc.Scan.BaseURL
	}
	if doc.Legacy != nil && doc.Legacy.BaseURL != "" {
		return doc.Legacy.BaseURL
	}
	raw := strings.TrimSpace(t.Input.Filters["url"])
	if raw == "" {
		raw = strings.TrimSpace(t.Input.Topic)
	}
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

func loadError(what string, err error) string {
	return "Failed to load " + what + ": " + eris.Cause(err).Error()
}
