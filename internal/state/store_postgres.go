package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSnapshotStore(ctx context.Context, databaseURL string) (*PostgresSnapshotStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSnapshotSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSnapshotStore{pool: pool}, nil
}

func initSnapshotSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS task_snapshots (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			assigned_agent_id TEXT NOT NULL DEFAULT '',
			auto_assign BOOLEAN NULL,
			priority TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_task_snapshots_updated ON task_snapshots (updated_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init snapshot schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresSnapshotStore) SaveTask(ctx context.Context, task Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_snapshots (
			id, title, description, status, assigned_agent_id, auto_assign,
			priority, source, tags, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
		)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			status=EXCLUDED.status,
			assigned_agent_id=EXCLUDED.assigned_agent_id,
			auto_assign=EXCLUDED.auto_assign,
			priority=EXCLUDED.priority,
			source=EXCLUDED.source,
			tags=EXCLUDED.tags,
			created_at=EXCLUDED.created_at,
			updated_at=EXCLUDED.updated_at`,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		task.AssignedAgentID,
		task.AutoAssign,
		string(task.Priority),
		task.Source,
		task.Tags,
		nullableTime(task.CreatedAt),
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert task snapshot: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) ListTasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, status, assigned_agent_id, auto_assign,
		        priority, source, tags, created_at, updated_at
		   FROM task_snapshots ORDER BY updated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list task snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0, limit)
	for rows.Next() {
		task, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task snapshot: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task snapshots: %w", err)
	}
	return out, nil
}

func scanSnapshotRow(row pgx.Row) (Task, error) {
	var (
		task            Task
		status          string
		priority        string
		createdNullable *time.Time
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&task.AssignedAgentID,
		&task.AutoAssign,
		&priority,
		&task.Source,
		&task.Tags,
		&createdNullable,
		&task.UpdatedAt,
	); err != nil {
		return Task{}, err
	}
	task.Status = TaskStatus(status)
	task.Priority = Priority(priority)
	if createdNullable != nil {
		task.CreatedAt = *createdNullable
	}
	return task, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *PostgresSnapshotStore) Close() error {
	s.pool.Close()
	return nil
}
