package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	AgentID string           `json:"agent_id,omitempty"`
	Status  model.TaskStatus `json:"status,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	Offset  int              `json:"offset,omitempty"`
}

// DefaultListLimit applies when a filter has no limit.
const DefaultListLimit = 100

func (f TaskFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for the agent backend.
type Store interface {
	// Agents
	ListAgents(ctx context.Context) ([]model.Agent, error)
	GetAgentByType(ctx context.Context, t model.AgentType) (*model.Agent, error)

	// Tasks
	CreateTask(ctx context.Context, agentID, action string, input model.TaskInput) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// ListTasks returns one page of tasks, newest first, and the total
	// number of tasks matching the filter.
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, int, error)
	// ClaimPending moves up to limit pending tasks to processing, oldest
	// first, and returns them.
	ClaimPending(ctx context.Context, limit int) ([]model.Task, error)
	// RequeueProcessing moves every processing task back to pending and
	// returns how many moved.
	RequeueProcessing(ctx context.Context) (int64, error)
	CompleteTask(ctx context.Context, id string, output model.TaskOutput) error
	FailTask(ctx context.Context, id string, message string) error

	// MCC reference list and decisions
	ListMccs(ctx context.Context, activeOnly bool) ([]model.MccRecord, error)
	GetMcc(ctx context.Context, code string) (*model.MccRecord, error)
	// SaveMccDecision records the final MCC for a task, replacing any
	// earlier decision.
	SaveMccDecision(ctx context.Context, d model.MccDecision) (*model.MccDecision, error)
	GetMccDecision(ctx context.Context, taskID string) (*model.MccDecision, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
