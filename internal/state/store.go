package state

import (
	"context"
	"strings"
)

// SnapshotStore persists best-effort copies of the task mirror so a restarted
// dashboard has something to show before the first replay completes. Writes
// happen continuously; ListTasks is read once at startup to hydrate the
// mirror.
type SnapshotStore interface {
	SaveTask(ctx context.Context, task Task) error
	ListTasks(ctx context.Context, limit int) ([]Task, error)
	Close() error
}

// NewSnapshotStore returns a Postgres-backed store when databaseURL is set,
// or nil (snapshots disabled) when it is empty.
func NewSnapshotStore(ctx context.Context, databaseURL string) (SnapshotStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	return NewPostgresSnapshotStore(ctx, databaseURL)
}
