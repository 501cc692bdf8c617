package backend

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/agent-console/internal/model"
	"github.com/sells-group/agent-console/internal/store"
)

// finishTimeout bounds the status write after a task ends, which runs even
// when the worker is shutting down.
const finishTimeout = 10 * time.Second

// Scanner runs one task and returns its response text.
type Scanner interface {
	Scan(ctx context.Context, task model.Task) (string, error)
}

// Worker polls for pending tasks and runs them with the scanner registered
// for their agent type.
type Worker struct {
	store       store.Store
	interval    time.Duration
	batch       int
	taskTimeout time.Duration

	mu       sync.Mutex
	scanners map[model.AgentType]Scanner
	types    map[string]model.AgentType // agent ID -> type
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithBatch sets how many tasks one poll claims and runs concurrently.
func WithBatch(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// WithTaskTimeout bounds a single task run.
func WithTaskTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.taskTimeout = d
		}
	}
}

// NewWorker creates a Worker polling every interval.
func NewWorker(st store.Store, interval time.Duration, opts ...WorkerOption) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	w := &Worker{
		store:       st,
		interval:    interval,
		batch:       2,
		taskTimeout: 5 * time.Minute,
		scanners:    map[model.AgentType]Scanner{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle registers the scanner for an agent type.
func (w *Worker) Handle(t model.AgentType, s Scanner) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scanners[t] = s
}

// Run requeues tasks left processing by an earlier run, then polls until
// ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	n, err := w.store.RequeueProcessing(ctx)
	if err != nil {
		return eris.Wrap(err, "backend: requeue processing")
	}
	zap.L().Info("backend: worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch", w.batch),
		zap.Int64("requeued", n),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			zap.L().Error("backend: worker poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			zap.L().Info("backend: worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of pending tasks and runs it to completion. It
// returns the number of tasks claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.store.ClaimPending(ctx, w.batch)
	if err != nil {
		return 0, eris.Wrap(err, "backend: claim pending")
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	for _, t := range tasks {
		g.Go(func() error {
			return w.process(ctx, t)
		})
	}
	return len(tasks), g.Wait()
}

func (w *Worker) process(ctx context.Context, t model.Task) error {
	log := zap.L().With(zap.String("task_id", t.ID), zap.String("topic", t.Input.Topic))

	agentType, err := w.agentType(ctx, t.AgentID)
	if err != nil {
		return w.fail(ctx, t, err)
	}
	w.mu.Lock()
	scanner, ok := w.scanners[agentType]
	w.mu.Unlock()
	if !ok {
		return w.fail(ctx, t, eris.Errorf("no worker for agent type %s", agentType))
	}

	runCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()
	start := time.Now()
	text, err := scanner.Scan(runCtx, t)
	if err != nil {
		log.Warn("backend: task failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return w.fail(ctx, t, err)
	}

	fctx, fcancel := finishContext(ctx)
	defer fcancel()
	if err := w.store.CompleteTask(fctx, t.ID, model.NewResponseOutput(text)); err != nil {
		return eris.Wrapf(err, "backend: complete task %s", t.ID)
	}
	log.Info("backend: task completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func (w *Worker) fail(ctx context.Context, t model.Task, cause error) error {
	fctx, cancel := finishContext(ctx)
	defer cancel()
	if err := w.store.FailTask(fctx, t.ID, cause.Error()); err != nil {
		return eris.Wrapf(err, "backend: fail task %s", t.ID)
	}
	return nil
}

func finishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
}

func (w *Worker) agentType(ctx context.Context, agentID string) (model.AgentType, error) {
	w.mu.Lock()
	t, ok := w.types[agentID]
	w.mu.Unlock()
	if ok {
		return t, nil
	}

	agents, err := w.store.ListAgents(ctx)
	if err != nil {
		return "", eris.Wrap(err, "backend: list agents")
	}
	types := make(map[string]model.AgentType, len(agents))
	for _, a := range agents {
		types[a.ID] = a.Type
	}
	w.mu.Lock()
	w.types = types
	w.mu.Unlock()

	if t, ok = types[agentID]; !ok {
		return "", eris.Errorf("unknown agent %s", agentID)
	}
	return t, nil
}
