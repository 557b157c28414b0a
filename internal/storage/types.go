package storage

import (
	"context"
	"errors"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
)

var (
	// ErrIndexOutOfRange is returned by Remove for a bad 0-based index.
	ErrIndexOutOfRange = errors.New("reminder index out of range")
)

// Config selects and configures the persistence backend.
//
// A non-empty PostgresURL always wins. Otherwise Driver picks a local
// backend:
//   - "file" (default): single JSON document keyed by session id
//   - "sqlite": SQLite database file (requires the sqlite build tag)
type Config struct {
	PostgresURL string
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store persists reminders keyed by session id. Slices keep creation order;
// Remove indexes are 0-based positions within that order.
type Store interface {
	Load(ctx context.Context) (map[string][]reminder.Reminder, error)
	Save(ctx context.Context, sessionID string, items []reminder.Reminder) error
	Add(ctx context.Context, sessionID string, r reminder.Reminder) error
	Remove(ctx context.Context, sessionID string, index int) (reminder.Reminder, error)
	// ClearExpired deletes one-shot reminders whose fire time is before now.
	ClearExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}
