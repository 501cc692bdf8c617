package dashboard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-console/internal/catalog"
	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/pkg/agentapi"
	"github.com/sells-group/agent-console/pkg/compliance"
)

type fakeAgents struct {
	mu sync.Mutex

	agentErr error
	page     model.TaskPage
	listErr  error
	tasks    map[string]*model.Task
	execErr  error

	limit, offset int
	executed      []model.ExecuteRequest
}

func (f *fakeAgents) ListAgents(context.Context) ([]model.Agent, error) {
	return []model.Agent{{ID: "agent-mr", Type: model.AgentTypeMarketResearch, Name: "Market Research"}}, nil
}

func (f *fakeAgents) FindAgent(ctx context.Context, t model.AgentType) (*model.Agent, error) {
	if f.agentErr != nil {
		return nil, f.agentErr
	}
	agents, _ := f.ListAgents(ctx)
	if a := model.FindAgent(agents, t); a != nil {
		return a, nil
	}
	return nil, agentapi.ErrAgentNotFound
}

func (f *fakeAgents) ListTasks(_ context.Context, _ string, limit, offset int) (*model.TaskPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit, f.offset = limit, offset
	if f.listErr != nil {
		return nil, f.listErr
	}
	p := f.page
	return &p, nil
}

func (f *fakeAgents) GetTask(_ context.Context, id string) (*model.Task, error) {
	if t, ok := f.tasks[id]; ok {
		return t, nil
	}
	return nil, &agentapi.StatusError{StatusCode: 404, Message: "task " + id + " not found"}
}

func (f *fakeAgents) Execute(_ context.Context, _ model.AgentType, req model.ExecuteRequest) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.executed = append(f.executed, req)
	return &model.Task{ID: "t-new", Action: req.Action, Status: model.TaskStatusPending, Input: req.Input}, nil
}

type fakeCompliance struct {
	mu sync.Mutex

	mccs        []model.MccRecord
	listErr     error
	finalizeErr error
	decisions   []model.MccDecision
}

func (f *fakeCompliance) ListMccs(context.Context, bool) ([]model.MccRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.mccs, nil
}

func (f *fakeCompliance) FinalizeMcc(_ context.Context, taskID string, d model.MccDecision) (*model.MccDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	d.TaskID = taskID
	f.decisions = append(f.decisions, d)
	return &d, nil
}

func (f *fakeCompliance) ProxyURL(target string) string {
	return compliance.ProxyURL("http://compliance.test", target)
}

func newTestServer(t *testing.T, agents *fakeAgents, comp *fakeCompliance) *Server {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	s, err := NewServer(Config{
		PageSize:  10,
		Operator:  "alice",
		ProxyBase: "http://compliance.test",
	}, agents, comp, cat, nil)
	require.NoError(t, err)
	return s
}
