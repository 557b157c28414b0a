// Package reminder holds the reminder domain model: the record itself,
// recurrence and holiday-filter enums, clock parsing, and session keying.
package reminder

import (
	"fmt"
	"strings"
	"time"
)

// RepeatType is the recurrence cadence of a reminder.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

// HolidayType restricts when a recurring reminder may fire.
type HolidayType string

const (
	HolidayNone    HolidayType = "none"    // fire unconditionally
	HolidayWorkday HolidayType = "workday" // fire on workdays only
	HolidayHoliday HolidayType = "holiday" // fire on rest days only
)

func ParseRepeatType(s string) (RepeatType, error) {
	switch RepeatType(strings.ToLower(strings.TrimSpace(s))) {
	case "", RepeatNone:
		return RepeatNone, nil
	case RepeatDaily:
		return RepeatDaily, nil
	case RepeatWeekly:
		return RepeatWeekly, nil
	case RepeatMonthly:
		return RepeatMonthly, nil
	case RepeatYearly:
		return RepeatYearly, nil
	default:
		return "", fmt.Errorf("unknown repeat type %q", s)
	}
}

func ParseHolidayType(s string) (HolidayType, error) {
	switch HolidayType(strings.ToLower(strings.TrimSpace(s))) {
	case "", HolidayNone:
		return HolidayNone, nil
	case HolidayWorkday:
		return HolidayWorkday, nil
	case HolidayHoliday:
		return HolidayHoliday, nil
	default:
		return "", fmt.Errorf("unknown holiday type %q", s)
	}
}

// Description renders the recurrence in list output, combined with the
// holiday filter ("every day", "every workday", "every holiday week", ...).
func Description(rt RepeatType, ht HolidayType) string {
	var cadence string
	switch rt {
	case RepeatDaily:
		cadence = "every day"
	case RepeatWeekly:
		cadence = "every week"
	case RepeatMonthly:
		cadence = "every month"
	case RepeatYearly:
		cadence = "every year"
	default:
		return "once"
	}
	switch ht {
	case HolidayWorkday:
		return cadence + ", workdays only"
	case HolidayHoliday:
		return cadence + ", holidays only"
	default:
		return cadence
	}
}

// Reminder is one scheduled reminder or task within a session.
type Reminder struct {
	Text        string      `json:"text"`
	DateTime    time.Time   `json:"date_time"`
	UserName    string      `json:"user_name,omitempty"`
	RepeatType  RepeatType  `json:"repeat_type,omitempty"`
	HolidayType HolidayType `json:"holiday_type,omitempty"`
	CreatorID   string      `json:"creator_id,omitempty"`
	CreatorName string      `json:"creator_name,omitempty"`
	IsTask      bool        `json:"is_task"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Repeats reports whether the reminder recurs (anything but a one-shot).
func (r Reminder) Repeats() bool {
	return r.RepeatType != "" && r.RepeatType != RepeatNone
}

// Kind is the user-facing noun for list and delivery output.
func (r Reminder) Kind() string {
	if r.IsTask {
		return "task"
	}
	return "reminder"
}
