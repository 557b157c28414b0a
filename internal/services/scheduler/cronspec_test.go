package scheduler

import (
	"testing"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

func TestSpecForRepeatTypes(t *testing.T) {
	t.Parallel()
	// Friday 2030-06-14 08:05.
	at := time.Date(2030, 6, 14, 8, 5, 0, 0, time.UTC)

	tests := []struct {
		name string
		rt   reminder.RepeatType
		want string
	}{
		{name: "daily", rt: reminder.RepeatDaily, want: "5 8 * * *"},
		{name: "weekly", rt: reminder.RepeatWeekly, want: "5 8 * * 5"},
		{name: "monthly", rt: reminder.RepeatMonthly, want: "5 8 14 * *"},
		{name: "yearly", rt: reminder.RepeatYearly, want: "5 8 14 6 *"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SpecFor(tt.rt, at)
			if !ok {
				t.Fatalf("SpecFor(%s) not a recurring spec", tt.rt)
			}
			if got != tt.want {
				t.Fatalf("SpecFor(%s) = %q, want %q", tt.rt, got, tt.want)
			}
		})
	}

	if _, ok := SpecFor(reminder.RepeatNone, at); ok {
		t.Fatal("RepeatNone must not produce a cron spec")
	}
}

func TestSpecForParsesWithCronParser(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	at := time.Date(2030, 6, 14, 8, 5, 0, 0, time.UTC)
	for _, rt := range []reminder.RepeatType{reminder.RepeatDaily, reminder.RepeatWeekly, reminder.RepeatMonthly, reminder.RepeatYearly} {
		spec, _ := SpecFor(rt, at)
		if _, err := s.parser.Parse(spec); err != nil {
			t.Errorf("spec %q for %s does not parse: %v", spec, rt, err)
		}
	}
}

func TestJobNameStable(t *testing.T) {
	t.Parallel()
	at := time.Date(2030, 6, 14, 8, 5, 0, 0, time.UTC)
	a := JobName("chat1", "water", at)
	b := JobName("chat1", "water", at)
	if a != b {
		t.Fatalf("JobName not stable: %q vs %q", a, b)
	}
	if JobName("chat2", "water", at) == a {
		t.Fatal("JobName should differ across sessions")
	}
	if JobName("chat1", "coffee", at) == a {
		t.Fatal("JobName should differ across texts")
	}
}
