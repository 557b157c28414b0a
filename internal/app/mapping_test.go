package app

import (
	"testing"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/config"
	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

func TestBroadcastsFromConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Remind: config.RemindConfig{
		AllUserReminds: []config.BroadcastRemind{
			{Content: "standup", DateTime: "09:30"},
			{Content: "retro", DateTime: "17:00", RepeatType: "weekly", HolidayType: "none"},
			{Content: "broken", DateTime: "not-a-time"},
		},
	}}

	got := broadcastsFromConfig(cfg, logx.Nop())
	if len(got) != 2 {
		t.Fatalf("broadcasts = %+v", got)
	}
	if got[0].RepeatType != reminder.RepeatDaily || got[0].HolidayType != reminder.HolidayWorkday {
		t.Errorf("defaults not applied: %+v", got[0])
	}
	if got[0].Hour != 9 || got[0].Minute != 30 {
		t.Errorf("clock = %d:%d", got[0].Hour, got[0].Minute)
	}
	if got[1].RepeatType != reminder.RepeatWeekly || got[1].HolidayType != reminder.HolidayNone {
		t.Errorf("explicit values lost: %+v", got[1])
	}
}

func TestMapStorageConfigPostgresWins(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Remind:  config.RemindConfig{PostgresURL: "postgresql://u:p@h:5432/db"},
		Storage: &config.StorageConfig{Driver: "sqlite", Path: "./x.db"},
	}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.PostgresURL == "" || sc.Driver != "sqlite" {
		t.Fatalf("cfg = %+v", sc)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "empty ok", cfg: config.Config{}},
		{
			name: "bad poll timeout",
			cfg:  config.Config{Telegram: config.TelegramConfig{PollTimeout: "soon"}},

			wantErr: true,
		},
		{
			name:    "bad timezone",
			cfg:     config.Config{Scheduler: config.SchedulerConfig{Timezone: "Mars/Olympus"}},
			wantErr: true,
		},
		{
			name:    "bad busy timeout",
			cfg:     config.Config{Storage: &config.StorageConfig{BusyTimeout: "five"}},
			wantErr: true,
		},
		{
			name: "bad broadcast entry",
			cfg: config.Config{Remind: config.RemindConfig{
				AllUserReminds: []config.BroadcastRemind{{Content: "x", DateTime: "99:99"}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateConfig(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateConfig = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
