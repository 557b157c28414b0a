package remind

import (
	"context"
	"fmt"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/scheduler"
	kit "github.com/beat4ocean/astrbot-plugin-remind/internal/transport"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

// Broadcast is an operator-defined recurring reminder delivered to a fixed
// chat rather than a user session. Entries come from config and are
// replaced wholesale on reload.
type Broadcast struct {
	Content     string
	Hour        int
	Minute      int
	RepeatType  reminder.RepeatType  // never none; config defaults to daily
	HolidayType reminder.HolidayType // config defaults to workday
}

// ApplyBroadcasts replaces the registered broadcast jobs. A zero target
// chat id unregisters everything, since there is nowhere to deliver.
func (s *Service) ApplyBroadcasts(entries []Broadcast, target kit.ChatTarget) {
	s.bmu.Lock()
	defer s.bmu.Unlock()

	for _, name := range s.broadcasts {
		s.sched.Remove(name)
	}
	s.broadcasts = nil

	if target.ChatID == 0 {
		if len(entries) > 0 {
			s.log.Warn("all_user_reminds configured but no broadcast chat set; skipping",
				logx.Int("count", len(entries)))
		}
		return
	}

	now := time.Now().In(s.sched.Location())
	for i, b := range entries {
		b := b
		at := reminder.NextFireTime(now, b.Hour, b.Minute, nil)
		spec, ok := scheduler.SpecFor(b.RepeatType, at)
		if !ok {
			s.log.Warn("broadcast entry has no recurring schedule; skipping",
				logx.Int("index", i), logx.String("repeat", string(b.RepeatType)))
			continue
		}

		name := fmt.Sprintf("broadcast_%d", i)
		err := s.sched.AddCron(name, spec, func(ctx context.Context) {
			if !s.cal.Allows(ctx, b.HolidayType, time.Now()) {
				return
			}
			if err := s.notif.Notify(ctx, kit.Notification{Target: target, Text: "📢 " + b.Content}); err != nil {
				s.log.Warn("broadcast enqueue failed", logx.String("name", name), logx.Err(err))
			}
		})
		if err != nil {
			s.log.Error("broadcast registration failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
			continue
		}
		s.broadcasts = append(s.broadcasts, name)
	}

	s.log.Info("broadcast reminders applied",
		logx.Int("configured", len(entries)),
		logx.Int("registered", len(s.broadcasts)),
		logx.Int64("chat_id", target.ChatID),
	)
}
