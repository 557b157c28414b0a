package remind

import (
	"strings"
	"testing"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
)

func TestApplyBroadcastsRegistersJobs(t *testing.T) {
	t.Parallel()
	engine, _, sched, _, _ := newTestEngine(t)

	entries := []Broadcast{
		{Content: "standup", Hour: 9, Minute: 30, RepeatType: reminder.RepeatDaily, HolidayType: reminder.HolidayWorkday},
		{Content: "retro", Hour: 17, Minute: 0, RepeatType: reminder.RepeatWeekly, HolidayType: reminder.HolidayNone},
	}
	engine.ApplyBroadcasts(entries, kit.ChatTarget{ChatID: -100500})

	var got []string
	for _, n := range sched.Names() {
		if strings.HasPrefix(n, "broadcast_") {
			got = append(got, n)
		}
	}
	if len(got) != 2 {
		t.Fatalf("broadcast jobs = %v", got)
	}

	// Reload with fewer entries replaces, not accumulates.
	engine.ApplyBroadcasts(entries[:1], kit.ChatTarget{ChatID: -100500})
	got = got[:0]
	for _, n := range sched.Names() {
		if strings.HasPrefix(n, "broadcast_") {
			got = append(got, n)
		}
	}
	if len(got) != 1 {
		t.Fatalf("after reload broadcast jobs = %v", got)
	}
}

func TestApplyBroadcastsWithoutTargetUnregisters(t *testing.T) {
	t.Parallel()
	engine, _, sched, _, _ := newTestEngine(t)

	entries := []Broadcast{{Content: "x", Hour: 9, Minute: 0, RepeatType: reminder.RepeatDaily}}
	engine.ApplyBroadcasts(entries, kit.ChatTarget{ChatID: -1})
	engine.ApplyBroadcasts(entries, kit.ChatTarget{})

	for _, n := range sched.Names() {
		if strings.HasPrefix(n, "broadcast_") {
			t.Fatalf("broadcast job %q should be gone", n)
		}
	}
}
