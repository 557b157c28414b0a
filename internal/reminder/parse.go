package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock accepts "HH:MM" and bare "HHMM" wall-clock strings.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	var hs, ms string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hs, ms = parts[0], parts[1]
	case len(s) == 4:
		hs, ms = s[:2], s[2:]
	case len(s) == 3:
		hs, ms = s[:1], s[1:]
	default:
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM or HHMM", s)
	}

	hour, err = strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute %d out of range", minute)
	}
	return hour, minute, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday recognizes short and long English weekday names.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

// NextFireTime resolves a wall clock to the next concrete fire time.
//
// Without a weekday the time rolls forward to tomorrow if it already passed
// today. With a weekday it targets the next such weekday (today counts when
// the clock is still ahead).
func NextFireTime(now time.Time, hour, minute int, weekday *time.Weekday) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if weekday == nil {
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at
	}

	days := (int(*weekday) - int(now.Weekday()) + 7) % 7
	at = at.AddDate(0, 0, days)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}
