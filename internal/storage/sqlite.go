package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "homecmd/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("sqlite pragma failed", logx.String("pragma", pragma), logx.Err(err))
		}
	}

	if _, err := db.Exec(migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) AddReminder(ctx context.Context, text string) (Reminder, error) {
	r, err := newReminder(0, text, time.Now())
	if err != nil {
		return Reminder{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(text, at, created) VALUES(?,?,?)`,
		r.Text, nullStr(r.At), r.Created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Reminder{}, s.wrap(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reminder{}, err
	}
	r.ID = int(id)
	return r, nil
}

func (s *sqliteStore) ListReminders(ctx context.Context) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, at, created FROM reminders ORDER BY id`)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteReminder(ctx context.Context, id int) (Reminder, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM reminders WHERE id = ? RETURNING id, text, at, created`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	if err != nil {
		return Reminder{}, s.wrap(err)
	}
	return r, nil
}

func (s *sqliteStore) DeleteReminderByText(ctx context.Context, ref string) (Reminder, error) {
	all, err := s.ListReminders(ctx)
	if err != nil {
		return Reminder{}, err
	}
	r, ok := matchText(all, ref)
	if !ok {
		return Reminder{}, ErrNotFound
	}
	return s.DeleteReminder(ctx, r.ID)
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) wrap(err error) error {
	if err != nil && strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(sc scanner) (Reminder, error) {
	var (
		r       Reminder
		at      sql.NullString
		created string
	)
	if err := sc.Scan(&r.ID, &r.Text, &at, &created); err != nil {
		return Reminder{}, err
	}
	r.At = at.String
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		r.Created = t
	}
	return r, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
