package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	t.Parallel()
	if err := ValidateDefaults(); err != nil {
		t.Fatalf("declared defaults must self-validate: %v", err)
	}
}

func TestValidateValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		option  string
		value   any
		wantErr string
	}{
		{name: "bool ok", option: "unique_session", value: true},
		{name: "bool type mismatch", option: "unique_session", value: "yes", wantErr: "expected bool"},
		{name: "string ok", option: "postgres_url", value: "postgresql://u:p@h:5432/db"},
		{name: "unknown option", option: "no_such_option", value: 1, wantErr: "unknown option"},
		{
			name:   "list ok",
			option: "all_user_reminds",
			value: []any{
				map[string]any{"content": "standup", "date_time": "09:30", "repeat_type": "daily", "holiday_type": "workday"},
			},
		},
		{
			name:    "list enum violation",
			option:  "all_user_reminds",
			value:   []any{map[string]any{"content": "x", "date_time": "09:30", "repeat_type": "hourly"}},
			wantErr: "not in enum",
		},
		{
			name:    "list unknown field",
			option:  "all_user_reminds",
			value:   []any{map[string]any{"content": "x", "when": "09:30"}},
			wantErr: "unknown field",
		},
		{
			name:    "list item not object",
			option:  "all_user_reminds",
			value:   []any{"09:30 standup"},
			wantErr: "expected object",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateValue(tt.option, tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRemind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		rc      RemindConfig
		wantErr string
	}{
		{name: "empty", rc: RemindConfig{}},
		{name: "valid postgres url", rc: RemindConfig{PostgresURL: "postgresql://u:p@h:5432/db"}},
		{name: "bad postgres url", rc: RemindConfig{PostgresURL: "mysql://h/db"}, wantErr: "postgresql://"},
		{
			name: "valid broadcast",
			rc: RemindConfig{AllUserReminds: []BroadcastRemind{
				{Content: "lunch", DateTime: "12:00", RepeatType: "daily", HolidayType: "workday"},
			}},
		},
		{
			name:    "broadcast missing content",
			rc:      RemindConfig{AllUserReminds: []BroadcastRemind{{DateTime: "12:00"}}},
			wantErr: "content is required",
		},
		{
			name:    "broadcast bad clock",
			rc:      RemindConfig{AllUserReminds: []BroadcastRemind{{Content: "x", DateTime: "25:00"}}},
			wantErr: "date_time",
		},
		{
			name:    "broadcast bad repeat",
			rc:      RemindConfig{AllUserReminds: []BroadcastRemind{{Content: "x", DateTime: "12:00", RepeatType: "fortnightly"}}},
			wantErr: "repeat_type",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRemind(&tt.rc)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
