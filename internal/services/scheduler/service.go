package scheduler

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Timezone string // IANA TZ, e.g. "Asia/Shanghai"
}

// Service runs named cron entries and one-shot timers on a shared clock.
// Names are unique: re-adding a name replaces the previous registration.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser  cron.Parser
	c       *cron.Cron
	entries map[string]cron.EntryID
	timers  map[string]*time.Timer

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		entries: map[string]cron.EntryID{},
		timers:  map[string]*time.Timer{},
	}
}

// Location returns the scheduling timezone (local time when unset/invalid).
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locationLocked()
}

func (s *Service) locationLocked() *time.Location {
	if s.loc != nil {
		return s.loc
	}
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		s.loc = time.Local
		return s.loc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to local", logx.String("tz", tz), logx.Err(err))
		s.loc = time.Local
		return s.loc
	}
	s.loc = loc
	return s.loc
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.locationLocked()))
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.locationLocked().String()))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.runCtx = nil
	s.entries = map[string]cron.EntryID{}
	timers := s.timers
	s.timers = map[string]*time.Timer{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, t := range timers {
		_ = t.Stop()
	}
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// running jobs finish in the background
	}
	s.log.Info("scheduler stopped")
}

// AddCron registers (or replaces) a recurring job under name.
func (s *Service) AddCron(name, spec string, job func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		s.runCtx, s.runCancel = context.WithCancel(context.Background())
		s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.locationLocked()))
		s.c.Start()
	}

	s.removeLocked(name)

	runCtx := s.runCtx
	id, err := s.c.AddFunc(spec, func() {
		s.runJob(runCtx, name, job)
	})
	if err != nil {
		return err
	}
	s.entries[name] = id
	s.log.Debug("cron job registered", logx.String("name", name), logx.String("spec", spec))
	return nil
}

// AddOnce registers (or replaces) a one-shot job firing at the given time.
// Times already in the past fire immediately.
func (s *Service) AddOnce(name string, at time.Time, job func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		s.runCtx, s.runCancel = context.WithCancel(context.Background())
	}
	s.removeLocked(name)

	runCtx := s.runCtx
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	s.timers[name] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()
		s.runJob(runCtx, name, job)
	})
	s.log.Debug("one-shot job registered", logx.String("name", name), logx.Time("at", at))
}

// Remove cancels a registration by name (cron entry or pending timer).
func (s *Service) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
}

func (s *Service) removeLocked(name string) {
	if id, ok := s.entries[name]; ok {
		if s.c != nil {
			s.c.Remove(id)
		}
		delete(s.entries, name)
	}
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
		delete(s.timers, name)
	}
}

// Names returns the currently registered job names (for tests/debugging).
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries)+len(s.timers))
	for n := range s.entries {
		out = append(out, n)
	}
	for n := range s.timers {
		out = append(out, n)
	}
	return out
}

func (s *Service) runJob(ctx context.Context, name string, job func(ctx context.Context)) {
	if ctx == nil || ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled job", logx.String("name", name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	job(ctx)
}
