package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/beat4ocean/astrbot-plugin-remind/internal/reminder"
	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// postgresStore backs the reminders table described by the versioned
// migrations under migrations/. Rows keep creation order via the serial id.
type postgresStore struct {
	db  *sql.DB
	log logx.Logger
}

func openPostgres(databaseURL string, log logx.Logger) (Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &postgresStore{db: db, log: log}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (s *postgresStore) Close() error { return s.db.Close() }

const reminderColumns = `text, date_time, user_name, repeat_type, holiday_type, creator_id, creator_name, is_task, created_at`

func (s *postgresStore) Load(ctx context.Context) (map[string][]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, `+reminderColumns+` FROM reminders ORDER BY session_id, id`)
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	defer rows.Close()

	out := map[string][]reminder.Reminder{}
	for rows.Next() {
		var (
			session string
			r       reminder.Reminder
		)
		if err := scanReminder(rows, &session, &r); err != nil {
			return nil, err
		}
		out[session] = append(out[session], r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner, session *string, r *reminder.Reminder) error {
	var (
		userName, repeatType, holidayType, creatorID, creatorName sql.NullString
		createdAt                                                 sql.NullTime
	)
	if err := row.Scan(session, &r.Text, &r.DateTime, &userName, &repeatType,
		&holidayType, &creatorID, &creatorName, &r.IsTask, &createdAt); err != nil {
		return fmt.Errorf("scan reminder: %w", err)
	}
	r.UserName = userName.String
	r.RepeatType = reminder.RepeatType(repeatType.String)
	r.HolidayType = reminder.HolidayType(holidayType.String)
	r.CreatorID = creatorID.String
	r.CreatorName = creatorName.String
	if createdAt.Valid {
		r.CreatedAt = createdAt.Time
	}
	return nil
}

func (s *postgresStore) Add(ctx context.Context, sessionID string, r reminder.Reminder) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (session_id, `+reminderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sessionID, r.Text, r.DateTime, nullStr(r.UserName), nullStr(string(r.RepeatType)),
		nullStr(string(r.HolidayType)), nullStr(r.CreatorID), nullStr(r.CreatorName), r.IsTask, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// Save replaces a session's reminders wholesale inside a transaction.
func (s *postgresStore) Save(ctx context.Context, sessionID string, items []reminder.Reminder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	for _, r := range items {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reminders (session_id, `+reminderColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sessionID, r.Text, r.DateTime, nullStr(r.UserName), nullStr(string(r.RepeatType)),
			nullStr(string(r.HolidayType)), nullStr(r.CreatorID), nullStr(r.CreatorName), r.IsTask, r.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
	}
	return tx.Commit()
}

func (s *postgresStore) Remove(ctx context.Context, sessionID string, index int) (reminder.Reminder, error) {
	if index < 0 {
		return reminder.Reminder{}, ErrIndexOutOfRange
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reminders WHERE session_id = $1 ORDER BY id OFFSET $2 LIMIT 1`,
		sessionID, index,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return reminder.Reminder{}, ErrIndexOutOfRange
	}
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("select reminder: %w", err)
	}

	var (
		session string
		removed reminder.Reminder
	)
	row := tx.QueryRowContext(ctx,
		`DELETE FROM reminders WHERE id = $1 RETURNING session_id, `+reminderColumns, id)
	if err := scanReminder(row, &session, &removed); err != nil {
		return reminder.Reminder{}, err
	}

	if err := tx.Commit(); err != nil {
		return reminder.Reminder{}, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

func (s *postgresStore) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders
		 WHERE (repeat_type IS NULL OR repeat_type = '' OR repeat_type = 'none')
		   AND date_time < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
