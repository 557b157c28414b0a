// Package remind is the engine tying the pieces together: it mirrors the
// store in memory, keeps the scheduler in sync, gates recurring firings
// through the holiday calendar, and hands delivery to the notify queue.
package remind

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/holiday"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/notify"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/scheduler"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/storage"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

// TargetResolver maps a delivery session id onto a chat target.
// It returns false when the session cannot be delivered to (e.g. a
// malformed id left over from another platform).
type TargetResolver func(sessionID string) (kit.ChatTarget, bool)

type Service struct {
	log   logx.Logger
	store storage.Store
	sched *scheduler.Service
	cal   *holiday.Calendar
	notif *notify.Service

	resolve TargetResolver

	mu    sync.Mutex
	items map[string][]reminder.Reminder

	// broadcast job names registered from config, replaced on reload
	bmu        sync.Mutex
	broadcasts []string
}

func New(store storage.Store, sched *scheduler.Service, cal *holiday.Calendar, notif *notify.Service, resolve TargetResolver, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log,
		store:   store,
		sched:   sched,
		cal:     cal,
		notif:   notif,
		resolve: resolve,
		items:   map[string][]reminder.Reminder{},
	}
}

// Location is the scheduler's wall-clock timezone.
func (s *Service) Location() *time.Location { return s.sched.Location() }

// Start drops already-expired one-shot reminders, loads the rest into
// memory, and registers a job for each.
func (s *Service) Start(ctx context.Context) error {
	if n, err := s.store.ClearExpired(ctx, time.Now()); err != nil {
		s.log.Warn("clearing expired reminders failed", logx.Err(err))
	} else if n > 0 {
		s.log.Info("expired one-shot reminders dropped", logx.Int("count", n))
	}

	all, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}

	s.mu.Lock()
	s.items = all
	s.mu.Unlock()

	count := 0
	for key, items := range all {
		for _, r := range items {
			s.register(key, r)
			count++
		}
	}
	s.log.Info("reminders restored", logx.Int("sessions", len(all)), logx.Int("count", count))
	return nil
}

// List returns the session's reminders in creation order.
func (s *Service) List(sessionKey string) []reminder.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reminder.Reminder(nil), s.items[sessionKey]...)
}

// Add persists and schedules a new reminder.
func (s *Service) Add(ctx context.Context, sessionKey string, r reminder.Reminder) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := s.store.Add(ctx, sessionKey, r); err != nil {
		return err
	}

	s.mu.Lock()
	s.items[sessionKey] = append(s.items[sessionKey], r)
	s.mu.Unlock()

	s.register(sessionKey, r)
	s.log.Info("reminder added",
		logx.String("session", sessionKey),
		logx.String("repeat", string(r.RepeatType)),
		logx.Bool("task", r.IsTask),
		logx.Time("at", r.DateTime),
	)
	return nil
}

// RemoveAt deletes by 0-based index and cancels the scheduled job.
func (s *Service) RemoveAt(ctx context.Context, sessionKey string, index int) (reminder.Reminder, error) {
	removed, err := s.store.Remove(ctx, sessionKey, index)
	if err != nil {
		return reminder.Reminder{}, err
	}

	s.mu.Lock()
	items := s.items[sessionKey]
	if index >= 0 && index < len(items) {
		items = append(items[:index], items[index+1:]...)
		if len(items) == 0 {
			delete(s.items, sessionKey)
		} else {
			s.items[sessionKey] = items
		}
	}
	s.mu.Unlock()

	s.sched.Remove(scheduler.JobName(sessionKey, removed.Text, removed.DateTime))
	s.log.Info("reminder removed", logx.String("session", sessionKey), logx.Int("index", index))
	return removed, nil
}

func (s *Service) register(sessionKey string, r reminder.Reminder) {
	name := scheduler.JobName(sessionKey, r.Text, r.DateTime)

	if spec, ok := scheduler.SpecFor(r.RepeatType, r.DateTime); ok {
		if err := s.sched.AddCron(name, spec, func(ctx context.Context) {
			s.fire(ctx, sessionKey, r, false)
		}); err != nil {
			s.log.Error("cron registration failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
		}
		return
	}

	s.sched.AddOnce(name, r.DateTime, func(ctx context.Context) {
		s.fire(ctx, sessionKey, r, true)
	})
}

func (s *Service) fire(ctx context.Context, sessionKey string, r reminder.Reminder, oneShot bool) {
	now := time.Now()
	if !oneShot && !s.cal.Allows(ctx, r.HolidayType, now) {
		s.log.Debug("firing skipped by holiday filter",
			logx.String("session", sessionKey),
			logx.String("filter", string(r.HolidayType)),
		)
		return
	}

	sessionID, _ := reminder.SplitSessionKey(sessionKey)
	target, ok := s.resolve(sessionID)
	if !ok {
		s.log.Warn("undeliverable session; reminder not sent", logx.String("session", sessionKey))
	} else {
		if err := s.notif.Notify(ctx, kit.Notification{Target: target, Text: reminder.FormatFire(r)}); err != nil {
			s.log.Warn("reminder enqueue failed", logx.String("session", sessionKey), logx.Err(err))
		}
	}

	if oneShot {
		s.removeFired(ctx, sessionKey, r)
	}
}

// removeFired drops a one-shot reminder after it fired. Matching is by
// identity (text + fire time) since indexes may have shifted.
func (s *Service) removeFired(ctx context.Context, sessionKey string, r reminder.Reminder) {
	s.mu.Lock()
	items := s.items[sessionKey]
	idx := -1
	for i, it := range items {
		if it.Text == r.Text && it.DateTime.Equal(r.DateTime) && it.IsTask == r.IsTask {
			idx = i
			break
		}
	}
	if idx >= 0 {
		items = append(items[:idx], items[idx+1:]...)
		if len(items) == 0 {
			delete(s.items, sessionKey)
		} else {
			s.items[sessionKey] = items
		}
	}
	s.mu.Unlock()

	if idx < 0 {
		return
	}
	if _, err := s.store.Remove(ctx, sessionKey, idx); err != nil {
		s.log.Warn("removing fired one-shot failed", logx.String("session", sessionKey), logx.Err(err))
	}
}
