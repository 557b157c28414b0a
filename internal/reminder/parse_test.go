package reminder

import (
	"testing"
	"time"
)

func TestParseClockVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		raw    string
		hour   int
		minute int
	}{
		{name: "colon", raw: "09:30", hour: 9, minute: 30},
		{name: "compact", raw: "0930", hour: 9, minute: 30},
		{name: "compact short hour", raw: "930", hour: 9, minute: 30},
		{name: "midnight", raw: "00:00", hour: 0, minute: 0},
		{name: "late", raw: "23:59", hour: 23, minute: 59},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h, m, err := ParseClock(tt.raw)
			if err != nil {
				t.Fatalf("ParseClock(%q) error: %v", tt.raw, err)
			}
			if h != tt.hour || m != tt.minute {
				t.Fatalf("ParseClock(%q) = %d:%d, want %d:%d", tt.raw, h, m, tt.hour, tt.minute)
			}
		})
	}
}

func TestParseClockInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"24:00", "12:60", "abc", "1", "12345", "1a:00"} {
		if _, _, err := ParseClock(raw); err == nil {
			t.Errorf("ParseClock(%q): expected error", raw)
		}
	}
}

func TestNextFireTimeRollsForward(t *testing.T) {
	t.Parallel()
	// Wednesday 2024-05-15 12:00 local.
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	got := NextFireTime(now, 13, 0, nil)
	if got.Day() != 15 || got.Hour() != 13 {
		t.Fatalf("future time today: got %v", got)
	}

	got = NextFireTime(now, 9, 0, nil)
	if got.Day() != 16 || got.Hour() != 9 {
		t.Fatalf("past time should roll to tomorrow: got %v", got)
	}
}

func TestNextFireTimeWeekday(t *testing.T) {
	t.Parallel()
	// Wednesday 2024-05-15 12:00.
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	fri := time.Friday
	got := NextFireTime(now, 9, 0, &fri)
	if got.Weekday() != time.Friday || got.Day() != 17 {
		t.Fatalf("next friday: got %v", got)
	}

	// Same weekday, time already past: next week.
	wed := time.Wednesday
	got = NextFireTime(now, 9, 0, &wed)
	if got.Weekday() != time.Wednesday || got.Day() != 22 {
		t.Fatalf("same weekday past time: got %v", got)
	}

	// Same weekday, time still ahead: today.
	got = NextFireTime(now, 18, 30, &wed)
	if got.Day() != 15 || got.Hour() != 18 {
		t.Fatalf("same weekday future time: got %v", got)
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()
	if wd, ok := ParseWeekday("Mon"); !ok || wd != time.Monday {
		t.Fatalf("ParseWeekday(Mon) = %v, %v", wd, ok)
	}
	if _, ok := ParseWeekday("noday"); ok {
		t.Fatal("expected failure for unknown weekday")
	}
}
