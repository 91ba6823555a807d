// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	namespace TEXT NOT NULL DEFAULT '',
	"group" TEXT NOT NULL,
	item TEXT NOT NULL,
	value TEXT,
	format TEXT NOT NULL DEFAULT 'string' CHECK (format IN ('string', 'json'))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_settings_identity ON settings(namespace, "group", item);
`

const selectColumns = `id, created_at, updated_at, namespace, "group", item, COALESCE(value, ''), format`

// Store implements record.Store using SQLite.
type Store struct {
	DB   *sql.DB
	path string
}

var _ record.Store = (*Store)(nil)

// NewStore opens (or creates) the database at dbPath and applies the schema.
func NewStore(ctx context.Context, dbPath string, cfg Config) (*Store, error) {
	db, err := Open(ctx, dbPath, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{DB: db, path: dbPath}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("settings store: migration failed: %w", err)
	}
	return s, nil
}

// Path returns the database file backing the store.
func (s *Store) Path() string { return s.path }

func (s *Store) migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) All(ctx context.Context) ([]record.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+selectColumns+` FROM settings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return scanRecords(rows)
}

func (s *Store) Group(ctx context.Context, namespace, group string) ([]record.Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM settings WHERE namespace = ? AND "group" = ? ORDER BY id`,
		namespace, group)
	if err != nil {
		return nil, fmt.Errorf("query settings group: %w", err)
	}
	return scanRecords(rows)
}

func (s *Store) Find(ctx context.Context, namespace, group, item string) (*record.Record, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM settings WHERE namespace = ? AND "group" = ? AND item = ?`,
		namespace, group, item)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find setting: %w", err)
	}
	return rec, nil
}

func (s *Store) Save(ctx context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	query := `
	INSERT INTO settings (created_at, updated_at, namespace, "group", item, value, format)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(namespace, "group", item) DO UPDATE SET
		value = excluded.value,
		format = excluded.format,
		updated_at = excluded.updated_at
	RETURNING id, created_at
	`
	var createdAt string
	err := s.DB.QueryRowContext(ctx, query,
		formatTime(now), formatTime(now), rec.Namespace, rec.Group, rec.Item, rec.Value, string(rec.Format),
	).Scan(&rec.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = now
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, group, item string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM settings WHERE namespace = ? AND "group" = ? AND item = ?`,
		namespace, group, item)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if n == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*record.Record, error) {
	var (
		rec                  record.Record
		createdAt, updatedAt string
		format               string
	)
	if err := row.Scan(&rec.ID, &createdAt, &updatedAt, &rec.Namespace, &rec.Group, &rec.Item, &rec.Value, &format); err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	rec.Format = record.Format(format)
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	defer rows.Close()
	var out []record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
