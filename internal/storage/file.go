package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

// fileStore is the dependency-free default backend: one JSON document
// holding every session's reminders. Writes go through a temp file and an
// atomic rename so a crash never leaves a half-written document behind.
type fileStore struct {
	log  logx.Logger
	path string

	mu   sync.Mutex
	data map[string][]reminder.Reminder
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		path = "./remind_data.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, path: path, data: map[string][]reminder.Reminder{}}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, err
	default:
		if len(b) > 0 {
			if err := json.Unmarshal(b, &s.data); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load(ctx context.Context) (map[string][]reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]reminder.Reminder, len(s.data))
	for k, v := range s.data {
		out[k] = append([]reminder.Reminder(nil), v...)
	}
	return out, nil
}

func (s *fileStore) Save(ctx context.Context, sessionID string, items []reminder.Reminder) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) == 0 {
		delete(s.data, sessionID)
	} else {
		s.data[sessionID] = append([]reminder.Reminder(nil), items...)
	}
	return s.flushLocked()
}

func (s *fileStore) Add(ctx context.Context, sessionID string, r reminder.Reminder) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.data[sessionID] = append(s.data[sessionID], r)
	return s.flushLocked()
}

func (s *fileStore) Remove(ctx context.Context, sessionID string, index int) (reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.data[sessionID]
	if index < 0 || index >= len(items) {
		return reminder.Reminder{}, ErrIndexOutOfRange
	}
	removed := items[index]
	items = append(items[:index], items[index+1:]...)
	if len(items) == 0 {
		delete(s.data, sessionID)
	} else {
		s.data[sessionID] = items
	}
	if err := s.flushLocked(); err != nil {
		return reminder.Reminder{}, err
	}
	return removed, nil
}

func (s *fileStore) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, items := range s.data {
		kept := items[:0]
		for _, r := range items {
			if !r.Repeats() && r.DateTime.Before(now) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.data, key)
		} else {
			s.data[key] = kept
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.flushLocked(); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *fileStore) flushLocked() error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
