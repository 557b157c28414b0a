package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

func newFileStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "remind.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestFileStoreAddLoadRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newFileStore(t)

	r1 := reminder.Reminder{Text: "drink water", DateTime: time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC), RepeatType: reminder.RepeatDaily}
	r2 := reminder.Reminder{Text: "standup", DateTime: time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC), IsTask: true}

	if err := st.Add(ctx, "chat1", r1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.Add(ctx, "chat1", r2); err != nil {
		t.Fatalf("Add: %v", err)
	}

	all, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all["chat1"]) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(all["chat1"]))
	}
	if all["chat1"][0].Text != "drink water" {
		t.Fatalf("order not preserved: %q first", all["chat1"][0].Text)
	}

	removed, err := st.Remove(ctx, "chat1", 0)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.Text != "drink water" {
		t.Fatalf("removed wrong reminder: %q", removed.Text)
	}

	if _, err := st.Remove(ctx, "chat1", 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "remind.json")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r := reminder.Reminder{Text: "pay rent", DateTime: time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC), RepeatType: reminder.RepeatMonthly, HolidayType: reminder.HolidayWorkday}
	if err := st.Add(ctx, "chat9", r); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_ = st.Close()

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	all, err := st2.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := all["chat9"]
	if len(got) != 1 || got[0].Text != "pay rent" || got[0].RepeatType != reminder.RepeatMonthly {
		t.Fatalf("unexpected reload result: %+v", got)
	}
}

func TestFileStoreClearExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newFileStore(t)

	now := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)
	past := reminder.Reminder{Text: "old one-shot", DateTime: now.Add(-time.Hour)}
	pastRepeating := reminder.Reminder{Text: "old daily", DateTime: now.Add(-time.Hour), RepeatType: reminder.RepeatDaily}
	future := reminder.Reminder{Text: "future one-shot", DateTime: now.Add(time.Hour)}

	for _, r := range []reminder.Reminder{past, pastRepeating, future} {
		if err := st.Add(ctx, "chat1", r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	n, err := st.ClearExpired(ctx, now)
	if err != nil {
		t.Fatalf("ClearExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired reminder removed, got %d", n)
	}

	all, _ := st.Load(ctx)
	if len(all["chat1"]) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(all["chat1"]))
	}
	for _, r := range all["chat1"] {
		if r.Text == "old one-shot" {
			t.Fatal("expired one-shot survived")
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
