package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/db"
	"github.com/sells-group/agent-console/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS agents (
	id   TEXT PRIMARY KEY,
	type TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	agent_id   TEXT NOT NULL REFERENCES agents(id),
	action     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	input      JSONB NOT NULL,
	output     JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mcc_codes (
	code        TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS mcc_decisions (
	task_id         TEXT PRIMARY KEY REFERENCES tasks(id),
	mcc_code        TEXT NOT NULL REFERENCES mcc_codes(code),
	override_reason TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL,
	selected_by     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_agent_created ON tasks(agent_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at);
`

var (
	agentsTable = db.Table{Name: "agents", Columns: []string{"id", "type", "name"}, Key: []string{"id"}}
	mccTable    = db.Table{
		Name:    "mcc_codes",
		Columns: []string{"code", "description", "category", "active"},
		Key:     []string{"code"},
		Refresh: []string{"description", "category", "active"},
	}
)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}

	agents := SeedAgents()
	agentRows := make([][]any, len(agents))
	for i, a := range agents {
		agentRows[i] = []any{a.ID, string(a.Type), a.Name}
	}
	if _, err := db.Seed(ctx, s.pool, agentsTable, agentRows); err != nil {
		return eris.Wrap(err, "postgres: seed agents")
	}

	mccs := SeedMccs()
	mccRows := make([][]any, len(mccs))
	for i, m := range mccs {
		mccRows[i] = []any{m.Code, m.Description, m.Category, m.Active}
	}
	if _, err := db.Seed(ctx, s.pool, mccTable, mccRows); err != nil {
		return eris.Wrap(err, "postgres: seed mccs")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, type, name FROM agents ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list agents")
	}
	defer rows.Close()

	var agents []model.Agent
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.ID, &a.Type, &a.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan agent")
		}
		agents = append(agents, a)
	}
	return agents, eris.Wrap(rows.Err(), "postgres: iterate agents")
}

func (s *PostgresStore) GetAgentByType(ctx context.Context, t model.AgentType) (*model.Agent, error) {
	var a model.Agent
	err := s.pool.QueryRow(ctx, `SELECT id, type, name FROM agents WHERE type = $1`, string(t)).
		Scan(&a.ID, &a.Type, &a.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "agent %s", t)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get agent")
	}
	return &a, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, agentID, action string, input model.TaskInput) (*model.Task, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tasks (id, agent_id, action, status, input, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, agentID, action, string(model.TaskStatusPending), inputJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert task")
	}

	return &model.Task{
		ID:        id,
		AgentID:   agentID,
		Action:    action,
		Status:    model.TaskStatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const pgTaskColumns = `id, agent_id, action, status, input, output, error, created_at, updated_at`

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanPgTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "task %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get task")
	}
	return t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, int, error) {
	where := ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.AgentID != "" {
		where += fmt.Sprintf(` AND agent_id = $%d`, argIdx)
		args = append(args, filter.AgentID)
		argIdx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "postgres: count tasks")
	}

	query := `SELECT ` + pgTaskColumns + ` FROM tasks` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, eris.Wrap(rows.Err(), "postgres: iterate tasks")
}

func (s *PostgresStore) ClaimPending(ctx context.Context, limit int) ([]model.Task, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE tasks SET status = $1, updated_at = now()
		 WHERE id IN (
		   SELECT id FROM tasks WHERE status = $2 ORDER BY created_at, id LIMIT $3 FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+pgTaskColumns,
		string(model.TaskStatusProcessing), string(model.TaskStatusPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim pending")
	}
	defer rows.Close()

	var claimed []model.Task
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan claimed")
		}
		claimed = append(claimed, *t)
	}
	return claimed, eris.Wrap(rows.Err(), "postgres: iterate claimed")
}

func (s *PostgresStore) CompleteTask(ctx context.Context, id string, output model.TaskOutput) error {
	var out []byte
	if !output.IsZero() {
		out = output.Raw()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, output = $2, error = '', updated_at = $3 WHERE id = $4`,
		string(model.TaskStatusCompleted), out, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete task %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "task %s", id)
	}
	return nil
}

func (s *PostgresStore) RequeueProcessing(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = now() WHERE status = $2`,
		string(model.TaskStatusPending), string(model.TaskStatusProcessing),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: requeue processing")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FailTask(ctx context.Context, id string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.TaskStatusFailed), message, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail task %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "task %s", id)
	}
	return nil
}

func (s *PostgresStore) ListMccs(ctx context.Context, activeOnly bool) ([]model.MccRecord, error) {
	query := `SELECT code, description, category, active FROM mcc_codes`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY code`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list mccs")
	}
	defer rows.Close()

	list := []model.MccRecord{}
	for rows.Next() {
		var m model.MccRecord
		if err := rows.Scan(&m.Code, &m.Description, &m.Category, &m.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mcc")
		}
		list = append(list, m)
	}
	return list, eris.Wrap(rows.Err(), "postgres: iterate mccs")
}

func (s *PostgresStore) GetMcc(ctx context.Context, code string) (*model.MccRecord, error) {
	var m model.MccRecord
	err := s.pool.QueryRow(ctx,
		`SELECT code, description, category, active FROM mcc_codes WHERE code = $1`, code,
	).Scan(&m.Code, &m.Description, &m.Category, &m.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "mcc %s", code)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get mcc")
	}
	return &m, nil
}

func (s *PostgresStore) SaveMccDecision(ctx context.Context, d model.MccDecision) (*model.MccDecision, error) {
	d.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO mcc_decisions (task_id, mcc_code, override_reason, source, selected_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (task_id) DO UPDATE SET mcc_code = EXCLUDED.mcc_code, override_reason = EXCLUDED.override_reason,
		   source = EXCLUDED.source, selected_by = EXCLUDED.selected_by, created_at = EXCLUDED.created_at`,
		d.TaskID, d.MccCode, d.OverrideReason, string(d.Source), d.SelectedBy, d.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save mcc decision %s", d.TaskID)
	}
	return &d, nil
}

func (s *PostgresStore) GetMccDecision(ctx context.Context, taskID string) (*model.MccDecision, error) {
	var d model.MccDecision
	err := s.pool.QueryRow(ctx,
		`SELECT task_id, mcc_code, override_reason, source, selected_by, created_at FROM mcc_decisions WHERE task_id = $1`,
		taskID,
	).Scan(&d.TaskID, &d.MccCode, &d.OverrideReason, &d.Source, &d.SelectedBy, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "mcc decision %s", taskID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get mcc decision")
	}
	return &d, nil
}

func scanPgTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	var inputJSON, outputJSON []byte

	err := row.Scan(&t.ID, &t.AgentID, &t.Action, &t.Status, &inputJSON, &outputJSON, &t.Error, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeTaskJSON(&t, inputJSON, outputJSON); err != nil {
		return nil, err
	}
	return &t, nil
}
