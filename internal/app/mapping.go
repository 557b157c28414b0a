package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/config"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/services/notify"
	remindsvc "github.com/beat4ocean/astrbot-plugin-remind/internal/services/remind"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/storage"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

func logCfgFrom(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// mapStorageConfig folds remind.postgres_url and the storage section into
// one backend selection. A non-empty postgres URL always wins.
func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	out := storage.Config{PostgresURL: strings.TrimSpace(cfg.Remind.PostgresURL)}
	if cfg.Storage == nil {
		return out, nil
	}
	out.Driver = strings.TrimSpace(cfg.Storage.Driver)
	out.Path = strings.TrimSpace(cfg.Storage.Path)

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	out.BusyTimeout = busy
	return out, nil
}

func mapNotifierConfig(cfg *config.Config) (notify.Config, error) {
	n := cfg.Notifier
	if n == nil {
		return notify.Config{}, nil
	}
	base, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notify.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}

// broadcastsFromConfig converts all_user_reminds entries, filling the
// documented defaults (daily, workday). Entries that fail to parse are
// skipped; the validator rejects them on reload, so this only triggers for
// a bad initial config.
func broadcastsFromConfig(cfg *config.Config, log logx.Logger) []remindsvc.Broadcast {
	entries := cfg.Remind.AllUserReminds
	out := make([]remindsvc.Broadcast, 0, len(entries))
	for i, e := range entries {
		hour, minute, err := reminder.ParseClock(e.DateTime)
		if err != nil {
			log.Warn("skipping broadcast entry with bad date_time",
				logx.Int("index", i), logx.Err(err))
			continue
		}
		rt := reminder.RepeatDaily
		if e.RepeatType != "" {
			if v, err := reminder.ParseRepeatType(e.RepeatType); err == nil && v != reminder.RepeatNone {
				rt = v
			}
		}
		ht := reminder.HolidayWorkday
		if e.HolidayType != "" {
			if v, err := reminder.ParseHolidayType(e.HolidayType); err == nil {
				ht = v
			}
		}
		out = append(out, remindsvc.Broadcast{
			Content:     e.Content,
			Hour:        hour,
			Minute:      minute,
			RepeatType:  rt,
			HolidayType: ht,
		})
	}
	return out
}

func derefStorage(cfg *config.Config) config.StorageConfig {
	if cfg == nil || cfg.Storage == nil {
		return config.StorageConfig{}
	}
	return *cfg.Storage
}

// validateConfig gates hot reloads: a config that fails here is rejected
// and the previous one stays in effect.
func validateConfig(cfg *config.Config) error {
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	return config.ValidateRemind(&cfg.Remind)
}
