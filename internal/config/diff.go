package config

import (
	"reflect"
	"sort"
	"strings"

	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (token, postgres_url credentials)
// are reported only as set/unset.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		oldCfg.Telegram.BroadcastChatID != newCfg.Telegram.BroadcastChatID ||
		oldCfg.Telegram.LogChatID != newCfg.Telegram.LogChatID {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Bool("telegram.broadcast_set", newCfg.Telegram.BroadcastChatID != 0),
			logx.Bool("telegram.log_chat_set", newCfg.Telegram.LogChatID != 0),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
		changed = append(changed, "scheduler")
		attrs = append(attrs, logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)))
	}

	oldN, newN := derefNotifier(oldCfg.Notifier), derefNotifier(newCfg.Notifier)
	if !reflect.DeepEqual(oldN, newN) {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.workers", newN.Workers),
			logx.Int("notifier.queue_size", newN.QueueSize),
			logx.Int("notifier.rate_per_sec", newN.RatePerSec),
			logx.Int("notifier.retry_max", newN.RetryMax),
		)
	}

	oldS, newS := derefStorage(oldCfg.Storage), derefStorage(newCfg.Storage)
	if !reflect.DeepEqual(oldS, newS) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newS.Path) != ""),
		)
	}

	// Remind (never log the postgres URL itself)
	if oldCfg.Remind.UniqueSession != newCfg.Remind.UniqueSession ||
		strings.TrimSpace(oldCfg.Remind.PostgresURL) != strings.TrimSpace(newCfg.Remind.PostgresURL) ||
		strings.TrimSpace(oldCfg.Remind.HolidayBaseURL) != strings.TrimSpace(newCfg.Remind.HolidayBaseURL) ||
		strings.TrimSpace(oldCfg.Remind.HolidayCacheDir) != strings.TrimSpace(newCfg.Remind.HolidayCacheDir) ||
		!reflect.DeepEqual(oldCfg.Remind.AllUserReminds, newCfg.Remind.AllUserReminds) {
		changed = append(changed, "remind")
		attrs = append(attrs,
			logx.Bool("remind.unique_session", newCfg.Remind.UniqueSession),
			logx.Bool("remind.postgres_set", strings.TrimSpace(newCfg.Remind.PostgresURL) != ""),
			logx.Int("remind.broadcast_count", len(newCfg.Remind.AllUserReminds)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefNotifier(n *NotifierConfig) NotifierConfig {
	if n == nil {
		return NotifierConfig{}
	}
	return *n
}

func derefStorage(s *StorageConfig) StorageConfig {
	if s == nil {
		return StorageConfig{}
	}
	return *s
}
