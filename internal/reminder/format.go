package reminder

import (
	"fmt"
	"strings"
)

// FormatList renders a session's reminders with 1-based indexes for /list
// and /delete.
func FormatList(items []Reminder) string {
	if len(items) == 0 {
		return "No reminders or tasks set."
	}
	var b strings.Builder
	b.WriteString("Current reminders and tasks:\n")
	for i, r := range items {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, r.DateTime.Format("2006-01-02 15:04"), r.Text)
		if desc := Description(r.RepeatType, r.HolidayType); desc != "once" {
			b.WriteString(" (" + desc + ")")
		}
		if r.IsTask {
			b.WriteString(" [task]")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nUse /delete <number> to remove an entry.")
	return b.String()
}

// FormatFire renders the delivery text for a firing reminder or task.
func FormatFire(r Reminder) string {
	name := strings.TrimSpace(r.UserName)
	if name == "" {
		name = strings.TrimSpace(r.CreatorName)
	}
	if r.IsTask {
		if name != "" {
			return fmt.Sprintf("Task for %s: %s", name, r.Text)
		}
		return "Task: " + r.Text
	}
	if name != "" {
		return fmt.Sprintf("⏰ %s, reminder: %s", name, r.Text)
	}
	return "⏰ Reminder: " + r.Text
}
