package scheduler

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
)

// SpecFor maps a recurrence cadence and its anchor fire time onto a
// standard 5-field cron spec. One-shot reminders have no spec; they run on
// a timer instead.
func SpecFor(rt reminder.RepeatType, at time.Time) (string, bool) {
	switch rt {
	case reminder.RepeatDaily:
		return fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour()), true
	case reminder.RepeatWeekly:
		return fmt.Sprintf("%d %d * * %d", at.Minute(), at.Hour(), int(at.Weekday())), true
	case reminder.RepeatMonthly:
		return fmt.Sprintf("%d %d %d * *", at.Minute(), at.Hour(), at.Day()), true
	case reminder.RepeatYearly:
		return fmt.Sprintf("%d %d %d %d *", at.Minute(), at.Hour(), at.Day(), int(at.Month())), true
	default:
		return "", false
	}
}

// JobName derives a stable job id from the reminder identity so that
// re-registering after a restart replaces instead of duplicating.
func JobName(sessionKey, text string, at time.Time) string {
	h := fnv.New64a()
	h.Write([]byte(sessionKey))
	h.Write([]byte{'|'})
	h.Write([]byte(text))
	h.Write([]byte{'|'})
	h.Write([]byte(at.Format("2006-01-02 15:04")))
	return fmt.Sprintf("remind_%x", h.Sum64())
}
