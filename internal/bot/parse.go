package bot

import (
	"errors"
	"strings"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
)

type parsedRemind struct {
	text    string
	at      time.Time
	repeat  reminder.RepeatType
	holiday reminder.HolidayType
}

var errUsage = errors.New("need a time and a text")

// parseRemindArgs understands
//
//	<HH:MM|HHMM> [weekday] <text...> [daily|weekly|monthly|yearly] [workday|holiday]
//
// The repeat and holiday words are recognized only at the end so reminder
// text like "check the daily report" stays intact as long as it doesn't
// end with a keyword.
func parseRemindArgs(args []string, now time.Time) (parsedRemind, error) {
	if len(args) < 2 {
		return parsedRemind{}, errUsage
	}

	hour, minute, err := reminder.ParseClock(args[0])
	if err != nil {
		return parsedRemind{}, err
	}
	rest := args[1:]

	var weekday *time.Weekday
	if wd, ok := reminder.ParseWeekday(rest[0]); ok {
		weekday = &wd
		rest = rest[1:]
	}

	out := parsedRemind{repeat: reminder.RepeatNone, holiday: reminder.HolidayNone}
	for len(rest) > 0 {
		last := strings.ToLower(rest[len(rest)-1])
		if out.repeat == reminder.RepeatNone {
			if rt, err := reminder.ParseRepeatType(last); err == nil && rt != reminder.RepeatNone {
				out.repeat = rt
				rest = rest[:len(rest)-1]
				continue
			}
		}
		if out.holiday == reminder.HolidayNone {
			if ht, err := reminder.ParseHolidayType(last); err == nil && ht != reminder.HolidayNone {
				out.holiday = ht
				rest = rest[:len(rest)-1]
				continue
			}
		}
		break
	}

	out.text = strings.TrimSpace(strings.Join(rest, " "))
	if out.text == "" {
		return parsedRemind{}, errUsage
	}
	out.at = reminder.NextFireTime(now, hour, minute, weekday)
	return out, nil
}
