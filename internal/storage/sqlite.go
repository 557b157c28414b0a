//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

//go:embed migrations.sql
var sqliteMigrationsFS embed.FS

// sqliteStore mirrors the postgres schema in a local database file.
// Timestamps are stored as RFC3339 text.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := sqliteMigrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (map[string][]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, text, date_time, user_name, repeat_type, holiday_type,
		        creator_id, creator_name, is_task, created_at
		 FROM reminders ORDER BY session_id, id`)
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	defer rows.Close()

	out := map[string][]reminder.Reminder{}
	for rows.Next() {
		var (
			session, dateTime                                         string
			userName, repeatType, holidayType, creatorID, creatorName sql.NullString
			createdAt                                                 sql.NullString
			r                                                         reminder.Reminder
		)
		if err := rows.Scan(&session, &r.Text, &dateTime, &userName, &repeatType,
			&holidayType, &creatorID, &creatorName, &r.IsTask, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if r.DateTime, err = time.Parse(time.RFC3339, dateTime); err != nil {
			return nil, fmt.Errorf("parse date_time %q: %w", dateTime, err)
		}
		if createdAt.Valid {
			r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		r.UserName = userName.String
		r.RepeatType = reminder.RepeatType(repeatType.String)
		r.HolidayType = reminder.HolidayType(holidayType.String)
		r.CreatorID = creatorID.String
		r.CreatorName = creatorName.String
		out[session] = append(out[session], r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Add(ctx context.Context, sessionID string, r reminder.Reminder) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (session_id, text, date_time, user_name, repeat_type,
		                        holiday_type, creator_id, creator_name, is_task, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		sessionID, r.Text, r.DateTime.Format(time.RFC3339), nullStr(r.UserName),
		nullStr(string(r.RepeatType)), nullStr(string(r.HolidayType)),
		nullStr(r.CreatorID), nullStr(r.CreatorName), r.IsTask, r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (s *sqliteStore) Save(ctx context.Context, sessionID string, items []reminder.Reminder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	for _, r := range items {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reminders (session_id, text, date_time, user_name, repeat_type,
			                        holiday_type, creator_id, creator_name, is_task, created_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			sessionID, r.Text, r.DateTime.Format(time.RFC3339), nullStr(r.UserName),
			nullStr(string(r.RepeatType)), nullStr(string(r.HolidayType)),
			nullStr(r.CreatorID), nullStr(r.CreatorName), r.IsTask, r.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Remove(ctx context.Context, sessionID string, index int) (reminder.Reminder, error) {
	if index < 0 {
		return reminder.Reminder{}, ErrIndexOutOfRange
	}

	all, err := s.Load(ctx)
	if err != nil {
		return reminder.Reminder{}, err
	}
	items := all[sessionID]
	if index >= len(items) {
		return reminder.Reminder{}, ErrIndexOutOfRange
	}
	removed := items[index]
	items = append(items[:index], items[index+1:]...)
	if err := s.Save(ctx, sessionID, items); err != nil {
		return reminder.Reminder{}, err
	}
	return removed, nil
}

func (s *sqliteStore) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders
		 WHERE (repeat_type IS NULL OR repeat_type = '' OR repeat_type = 'none')
		   AND date_time < ?`, now.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("clear expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
