package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/domain"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// timestampLayout is fixed-width so lexical order equals chronological order.
const timestampLayout = "2006-01-02T15:04:05Z"

var (
	_ app.EventStore        = (*Repository)(nil)
	_ app.HolidayRepository = (*Repository)(nil)
)

// Repository stores activity events and holidays in one sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens the database at path, creating parent directories and schema as needed.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// The memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			timestamp TEXT PRIMARY KEY,
			duration_seconds INTEGER NOT NULL,
			client TEXT NOT NULL,
			project TEXT NOT NULL,
			task TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS holidays (
			date TEXT PRIMARY KEY,
			title TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE activities ADD COLUMN notes TEXT NOT NULL DEFAULT ''`); err != nil && !isDuplicateColumnErr(err) {
		return fmt.Errorf("migrate sqlite add activities.notes: %w", err)
	}
	return nil
}

// Record appends one event. A second event at the same timestamp returns *domain.DuplicateEventError.
func (r *Repository) Record(ctx context.Context, event domain.ActivityLogged) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities(timestamp, duration_seconds, client, project, task, notes)
		VALUES(?, ?, ?, ?, ?, ?)
	`, ts(event.Timestamp), int64(event.Duration/time.Second), event.Client, event.Project, event.Task, event.Notes)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return &domain.DuplicateEventError{Timestamp: event.Timestamp}
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Replay yields events inside rng in timestamp order. Rows are released when iteration stops.
func (r *Repository) Replay(ctx context.Context, rng domain.ReplayRange) iter.Seq2[domain.ActivityLogged, error] {
	return func(yield func(domain.ActivityLogged, error) bool) {
		query, args := replayQuery(rng)
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(domain.ActivityLogged{}, fmt.Errorf("replay activities: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			if err := ctx.Err(); err != nil {
				yield(domain.ActivityLogged{}, err)
				return
			}
			event, err := scanActivity(rows)
			if err != nil {
				yield(domain.ActivityLogged{}, err)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.ActivityLogged{}, fmt.Errorf("replay activities: %w", err))
		}
	}
}

// replayQuery builds the select for rng. Bounds are rounded up to whole seconds to match stored precision.
func replayQuery(rng domain.ReplayRange) (string, []any) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if !rng.From.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, ts(ceilSecond(rng.From)))
	}
	if !rng.To.IsZero() {
		clauses = append(clauses, "timestamp < ?")
		args = append(args, ts(ceilSecond(rng.To)))
	}
	query := `SELECT timestamp, duration_seconds, client, project, task, notes FROM activities`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query + " ORDER BY timestamp ASC", args
}

// FindAllByDate returns holidays in [startInclusive, endExclusive) ordered by date.
func (r *Repository) FindAllByDate(ctx context.Context, startInclusive, endExclusive civil.Date) ([]domain.Holiday, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, title
		FROM holidays
		WHERE date >= ? AND date < ?
		ORDER BY date ASC
	`, startInclusive.String(), endExclusive.String())
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Holiday, 0)
	for rows.Next() {
		var (
			dateRaw string
			holiday domain.Holiday
		)
		if err := rows.Scan(&dateRaw, &holiday.Title); err != nil {
			return nil, err
		}
		holiday.Date, err = civil.ParseDate(dateRaw)
		if err != nil {
			return nil, fmt.Errorf("parse holiday date %q: %w", dateRaw, err)
		}
		out = append(out, holiday)
	}
	return out, rows.Err()
}

// SaveHolidays upserts holidays by date in one transaction.
func (r *Repository) SaveHolidays(ctx context.Context, holidays []domain.Holiday) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save holidays tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, holiday := range holidays {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO holidays(date, title) VALUES(?, ?)
			ON CONFLICT(date) DO UPDATE SET title = excluded.title
		`, holiday.Date.String(), holiday.Title); err != nil {
			return fmt.Errorf("upsert holiday %s: %w", holiday.Date, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save holidays tx: %w", err)
	}
	return nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanActivity reads one activities row.
func scanActivity(s scanner) (domain.ActivityLogged, error) {
	var (
		timestampRaw    string
		durationSeconds int64
		event           domain.ActivityLogged
	)
	if err := s.Scan(&timestampRaw, &durationSeconds, &event.Client, &event.Project, &event.Task, &event.Notes); err != nil {
		return domain.ActivityLogged{}, err
	}
	timestamp, err := time.Parse(timestampLayout, timestampRaw)
	if err != nil {
		return domain.ActivityLogged{}, fmt.Errorf("parse activity timestamp %q: %w", timestampRaw, err)
	}
	event.Timestamp = timestamp.UTC()
	event.Duration = time.Duration(durationSeconds) * time.Second
	return event, nil
}

// ts formats an instant as a stored timestamp key.
func ts(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ceilSecond rounds t up to the next whole second.
func ceilSecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Second)
	if truncated.Equal(t) {
		return t
	}
	return truncated.Add(time.Second)
}

// isDuplicateColumnErr reports whether the expected condition is satisfied.
func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// isPrimaryKeyViolation reports whether err is a primary key or unique constraint failure.
func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
