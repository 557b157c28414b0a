package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/holiday"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/notify"
	remindsvc "github.com/beat4ocean/astrbot-plugin-remind/internal/services/remind"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/scheduler"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/storage"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	chats []int64
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                        { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (f *fakeAdapter) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no reply sent")
	}
	return f.sent[len(f.sent)-1]
}

func newTestRouter(t *testing.T, uniqueSession bool) (*Router, *fakeAdapter, *remindsvc.Service) {
	t.Helper()
	ad := &fakeAdapter{}
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
	cal := holiday.New(holiday.Config{CacheDir: t.TempDir()}, logx.Nop())
	notif := notify.New(notify.Config{}, ad, logx.Nop())

	engine := remindsvc.New(store, sched, cal, notif, func(string) (kit.ChatTarget, bool) {
		return kit.ChatTarget{}, false
	}, logx.Nop())

	return NewRouter(ad, engine, uniqueSession, logx.Nop()), ad, engine
}

func msgUpdate(chatID, fromID int64, text string, group bool) kit.Update {
	return kit.Update{Message: &kit.Message{
		ChatID:       chatID,
		FromID:       fromID,
		FromUsername: "alice",
		Text:         text,
		IsGroup:      group,
	}}
}

func TestRouterRemindListDelete(t *testing.T) {
	t.Parallel()
	r, ad, engine := newTestRouter(t, false)
	ctx := context.Background()

	r.route(ctx, msgUpdate(42, 7, "/remind 09:30 drink water daily", false))
	if reply := ad.last(t); !strings.Contains(reply, "reminder set") {
		t.Fatalf("add reply = %q", reply)
	}
	if items := engine.List("42"); len(items) != 1 || items[0].Text != "drink water" {
		t.Fatalf("engine items = %+v", engine.List("42"))
	}

	r.route(ctx, msgUpdate(42, 7, "/list", false))
	if reply := ad.last(t); !strings.Contains(reply, "drink water") {
		t.Fatalf("list reply = %q", reply)
	}

	r.route(ctx, msgUpdate(42, 7, "/delete 1", false))
	if reply := ad.last(t); !strings.Contains(reply, "deleted") {
		t.Fatalf("delete reply = %q", reply)
	}
	if items := engine.List("42"); len(items) != 0 {
		t.Fatalf("expected empty after delete, got %+v", items)
	}
}

func TestRouterDeleteOutOfRange(t *testing.T) {
	t.Parallel()
	r, ad, _ := newTestRouter(t, false)
	r.route(context.Background(), msgUpdate(42, 7, "/delete 3", false))
	if reply := ad.last(t); !strings.Contains(reply, "no reminder with that number") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestRouterTaskCommand(t *testing.T) {
	t.Parallel()
	r, ad, engine := newTestRouter(t, false)
	r.route(context.Background(), msgUpdate(42, 7, "/task 08:00 standup daily workday", false))
	if reply := ad.last(t); !strings.Contains(reply, "task set") {
		t.Fatalf("reply = %q", reply)
	}
	items := engine.List("42")
	if len(items) != 1 || !items[0].IsTask {
		t.Fatalf("items = %+v", items)
	}
}

func TestRouterUniqueSessionKeying(t *testing.T) {
	t.Parallel()
	r, _, engine := newTestRouter(t, true)
	ctx := context.Background()

	// Two users in the same group get separate sessions.
	r.route(ctx, msgUpdate(-100, 7, "/remind 09:30 water", true))
	r.route(ctx, msgUpdate(-100, 8, "/remind 10:30 coffee", true))

	if items := engine.List("-100_7"); len(items) != 1 || items[0].Text != "water" {
		t.Fatalf("user 7 items = %+v", items)
	}
	if items := engine.List("-100_8"); len(items) != 1 || items[0].Text != "coffee" {
		t.Fatalf("user 8 items = %+v", items)
	}

	// Private chats are never suffixed.
	r.route(ctx, msgUpdate(7, 7, "/remind 09:30 stretch", false))
	if items := engine.List("7"); len(items) != 1 {
		t.Fatalf("private items = %+v", items)
	}
}

func TestRouterIgnoresUnknownAndPlainText(t *testing.T) {
	t.Parallel()
	r, ad, _ := newTestRouter(t, false)
	ctx := context.Background()
	r.route(ctx, msgUpdate(42, 7, "hello there", false))
	r.route(ctx, msgUpdate(42, 7, "/frobnicate", false))
	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.sent) != 0 {
		t.Fatalf("expected silence, got %v", ad.sent)
	}
}

func TestRouterHelp(t *testing.T) {
	t.Parallel()
	r, ad, _ := newTestRouter(t, false)
	r.route(context.Background(), msgUpdate(42, 7, "/help", false))
	reply := ad.last(t)
	for _, want := range []string{"/remind", "/task", "/list", "/delete"} {
		if !strings.Contains(reply, want) {
			t.Errorf("help missing %q:\n%s", want, reply)
		}
	}
}

func TestMenuCommands(t *testing.T) {
	t.Parallel()
	r, _, _ := newTestRouter(t, false)
	menu := r.MenuCommands()
	if len(menu) < 5 {
		t.Fatalf("menu = %+v", menu)
	}
	if menu[0].Command != "remind" {
		t.Errorf("first menu entry = %+v, want remind", menu[0])
	}
}
