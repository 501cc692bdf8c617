package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/agent-console/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS agents (
	id   TEXT PRIMARY KEY,
	type TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL REFERENCES agents(id),
	action     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	input      TEXT NOT NULL,
	output     TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS mcc_codes (
	code        TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	active      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS mcc_decisions (
	task_id         TEXT PRIMARY KEY REFERENCES tasks(id),
	mcc_code        TEXT NOT NULL REFERENCES mcc_codes(code),
	override_reason TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL,
	selected_by     TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tasks_agent_created ON tasks(agent_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: seed begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range SeedAgents() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO agents (id, type, name) VALUES (?, ?, ?)`,
			a.ID, string(a.Type), a.Name,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed agent %s", a.Type)
		}
	}
	for _, m := range SeedMccs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mcc_codes (code, description, category, active) VALUES (?, ?, ?, ?)
			 ON CONFLICT(code) DO UPDATE SET description = excluded.description, category = excluded.category, active = excluded.active`,
			m.Code, m.Description, m.Category, m.Active,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed mcc %s", m.Code)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: seed commit")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, name FROM agents ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list agents")
	}
	defer rows.Close() //nolint:errcheck

	var agents []model.Agent
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.ID, &a.Type, &a.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan agent")
		}
		agents = append(agents, a)
	}
	return agents, eris.Wrap(rows.Err(), "sqlite: iterate agents")
}

func (s *SQLiteStore) GetAgentByType(ctx context.Context, t model.AgentType) (*model.Agent, error) {
	var a model.Agent
	err := s.db.QueryRowContext(ctx, `SELECT id, type, name FROM agents WHERE type = ?`, string(t)).
		Scan(&a.ID, &a.Type, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "agent %s", t)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get agent")
	}
	return &a, nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, agentID, action string, input model.TaskInput) (*model.Task, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal input")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, agent_id, action, status, input, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, agentID, action, string(model.TaskStatusPending), string(inputJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert task")
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

const sqliteTaskColumns = `id, agent_id, action, status, input, output, error, created_at, updated_at`

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "task %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get task")
	}
	return t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if filter.AgentID != "" {
		where += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	if filter.Status != "" {
		where += ` AND status = ?`
		args = append(args, string(filter.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: count tasks")
	}

	query := `SELECT ` + sqliteTaskColumns + ` FROM tasks` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close() //nolint:errcheck

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "sqlite: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, eris.Wrap(rows.Err(), "sqlite: iterate tasks")
}

func (s *SQLiteStore) ClaimPending(ctx context.Context, limit int) ([]model.Task, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM tasks WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		string(model.TaskStatusPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select pending")
	}
	var claimed []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan pending")
		}
		claimed = append(claimed, *t)
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate pending")
	}

	now := time.Now().UTC()
	for i := range claimed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
			string(model.TaskStatusProcessing), now, claimed[i].ID,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: claim task %s", claimed[i].ID)
		}
		claimed[i].Status = model.TaskStatusProcessing
		claimed[i].UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: claim commit")
	}
	return claimed, nil
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, id string, output model.TaskOutput) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, output = ?, error = '', updated_at = ? WHERE id = ?`,
		string(model.TaskStatusCompleted), nullableJSON(output), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete task %s", id)
	}
	return checkRowsAffected(res, "task", id)
}

func (s *SQLiteStore) RequeueProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE status = ?`,
		string(model.TaskStatusPending), time.Now().UTC(), string(model.TaskStatusProcessing),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: requeue processing")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: requeue rows affected")
}

func (s *SQLiteStore) FailTask(ctx context.Context, id string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.TaskStatusFailed), message, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail task %s", id)
	}
	return checkRowsAffected(res, "task", id)
}

func (s *SQLiteStore) ListMccs(ctx context.Context, activeOnly bool) ([]model.MccRecord, error) {
	query := `SELECT code, description, category, active FROM mcc_codes`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list mccs")
	}
	defer rows.Close() //nolint:errcheck

	list := []model.MccRecord{}
	for rows.Next() {
		var m model.MccRecord
		if err := rows.Scan(&m.Code, &m.Description, &m.Category, &m.Active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mcc")
		}
		list = append(list, m)
	}
	return list, eris.Wrap(rows.Err(), "sqlite: iterate mccs")
}

func (s *SQLiteStore) GetMcc(ctx context.Context, code string) (*model.MccRecord, error) {
	var m model.MccRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT code, description, category, active FROM mcc_codes WHERE code = ?`, code,
	).Scan(&m.Code, &m.Description, &m.Category, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "mcc %s", code)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get mcc")
	}
	return &m, nil
}

func (s *SQLiteStore) SaveMccDecision(ctx context.Context, d model.MccDecision) (*model.MccDecision, error) {
	d.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mcc_decisions (task_id, mcc_code, override_reason, source, selected_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET mcc_code = excluded.mcc_code, override_reason = excluded.override_reason,
		   source = excluded.source, selected_by = excluded.selected_by, created_at = excluded.created_at`,
		d.TaskID, d.MccCode, d.OverrideReason, string(d.Source), d.SelectedBy, d.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save mcc decision %s", d.TaskID)
	}
	return &d, nil
}

func (s *SQLiteStore) GetMccDecision(ctx context.Context, taskID string) (*model.MccDecision, error) {
	var d model.MccDecision
	err := s.db.QueryRowContext(ctx,
		`SELECT task_id, mcc_code, override_reason, source, selected_by, created_at FROM mcc_decisions WHERE task_id = ?`,
		taskID,
	).Scan(&d.TaskID, &d.MccCode, &d.OverrideReason, &d.Source, &d.SelectedBy, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "mcc decision %s", taskID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get mcc decision")
	}
	return &d, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	var inputJSON string
	var outputJSON sql.NullString

	err := row.Scan(&t.ID, &t.AgentID, &t.Action, &t.Status, &inputJSON, &outputJSON, &t.Error, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeTaskJSON(&t, []byte(inputJSON), []byte(outputJSON.String)); err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeTaskJSON(t *model.Task, input, output []byte) error {
	if err := json.Unmarshal(input, &t.Input); err != nil {
		return eris.Wrap(err, "unmarshal task input")
	}
	if len(strings.TrimSpace(string(output))) > 0 {
		if err := json.Unmarshal(output, &t.Output); err != nil {
			return eris.Wrap(err, "unmarshal task output")
		}
	}
	return nil
}

func nullableJSON(o model.TaskOutput) any {
	if o.IsZero() {
		return nil
	}
	return string(o.Raw())
}
