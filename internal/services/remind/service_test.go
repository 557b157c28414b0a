package remind

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/holiday"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/notify"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/scheduler"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/storage"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                        { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (f *fakeAdapter) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestEngine(t *testing.T) (*Service, storage.Store, *scheduler.Service, *fakeAdapter, *notify.Service) {
	t.Helper()
	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "data.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sched := scheduler.New(scheduler.Config{}, logx.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		sched.Stop(ctx)
	})

	ad := &fakeAdapter{}
	notif := notify.New(notify.Config{Workers: 1, RatePerSec: 100}, ad, logx.Nop())
	cal := holiday.New(holiday.Config{CacheDir: t.TempDir()}, logx.Nop())

	engine := New(store, sched, cal, notif, func(sessionID string) (kit.ChatTarget, bool) {
		return kit.ChatTarget{ChatID: 42}, true
	}, logx.Nop())
	return engine, store, sched, ad, notif
}

func future(d time.Duration) time.Time { return time.Now().Add(d).Truncate(time.Second) }

func TestEngineAddListRemove(t *testing.T) {
	t.Parallel()
	engine, store, sched, _, _ := newTestEngine(t)
	ctx := context.Background()

	a := reminder.Reminder{Text: "water", DateTime: future(time.Hour), RepeatType: reminder.RepeatDaily}
	b := reminder.Reminder{Text: "coffee", DateTime: future(2 * time.Hour)}
	if err := engine.Add(ctx, "chat1", a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.Add(ctx, "chat1", b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	items := engine.List("chat1")
	if len(items) != 2 || items[0].Text != "water" || items[1].Text != "coffee" {
		t.Fatalf("List = %+v", items)
	}
	if names := sched.Names(); len(names) != 2 {
		t.Fatalf("scheduler names = %v", names)
	}

	removed, err := engine.RemoveAt(ctx, "chat1", 0)
	if err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if removed.Text != "water" {
		t.Fatalf("removed = %+v", removed)
	}
	if names := sched.Names(); len(names) != 1 {
		t.Fatalf("scheduler names after remove = %v", names)
	}

	// write-through: the store matches memory
	all, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all["chat1"]) != 1 || all["chat1"][0].Text != "coffee" {
		t.Fatalf("store = %+v", all)
	}
}

func TestEngineStartRestoresAndClearsExpired(t *testing.T) {
	t.Parallel()
	engine, store, sched, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Seed the store directly: one recurring, one live one-shot, one
	// already expired one-shot.
	seed := []reminder.Reminder{
		{Text: "recurring", DateTime: future(time.Hour), RepeatType: reminder.RepeatDaily},
		{Text: "live", DateTime: future(time.Hour)},
		{Text: "stale", DateTime: time.Now().Add(-time.Hour)},
	}
	for _, r := range seed {
		if err := store.Add(ctx, "chat1", r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	items := engine.List("chat1")
	if len(items) != 2 {
		t.Fatalf("expected stale reminder dropped, got %+v", items)
	}
	if names := sched.Names(); len(names) != 2 {
		t.Fatalf("scheduler names = %v", names)
	}
}

func TestEngineOneShotFireDeliversAndRemoves(t *testing.T) {
	t.Parallel()
	engine, store, _, ad, notif := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notif.Start(ctx)

	r := reminder.Reminder{Text: "call mom", DateTime: future(time.Hour), UserName: "alice"}
	if err := engine.Add(ctx, "chat1", r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	engine.fire(ctx, "chat1", r, true)

	// Drain the queue so the send is observable.
	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	notif.Stop(sctx)
	scancel()

	texts := ad.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "call mom") {
		t.Fatalf("delivered = %v", texts)
	}

	if items := engine.List("chat1"); len(items) != 0 {
		t.Fatalf("one-shot should be gone from memory, got %+v", items)
	}
	all, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all["chat1"]) != 0 {
		t.Fatalf("one-shot should be gone from store, got %+v", all)
	}
}

func TestEngineFireUnresolvableSession(t *testing.T) {
	t.Parallel()
	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "data.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	sched := scheduler.New(scheduler.Config{}, logx.Nop())
	ad := &fakeAdapter{}
	notif := notify.New(notify.Config{}, ad, logx.Nop())
	cal := holiday.New(holiday.Config{CacheDir: t.TempDir()}, logx.Nop())

	engine := New(store, sched, cal, notif, func(string) (kit.ChatTarget, bool) {
		return kit.ChatTarget{}, false
	}, logx.Nop())

	// Must not panic or deliver.
	engine.fire(context.Background(), "weird_key", reminder.Reminder{Text: "x", DateTime: future(time.Hour)}, false)
	if got := ad.texts(); len(got) != 0 {
		t.Fatalf("expected no delivery, got %v", got)
	}
}
