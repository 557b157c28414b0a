package bot

import (
	"context"
	"strings"
)

func (r *Router) handleHelp(ctx context.Context, req *Request) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString("I can remind you about things at a given time.\n\n")
	for _, name := range r.order {
		c := r.cmds[name]
		if c.Name == "start" {
			continue
		}
		b.WriteString(c.Usage)
		b.WriteString("\n  ")
		b.WriteString(c.Description)
		b.WriteString("\n")
	}
	b.WriteString("\nexamples:\n")
	b.WriteString("  /remind 09:30 drink water daily\n")
	b.WriteString("  /remind 18:00 friday weekly review weekly\n")
	b.WriteString("  /task 08:00 standup notes daily workday\n")

	req.reply(ctx, b.String())
	return nil
}
