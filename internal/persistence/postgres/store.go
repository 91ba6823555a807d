// SPDX-License-Identifier: MIT

// Package postgres implements the record store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxotel"

	"github.com/antoniofrignani/laravel4-settings/internal/persistence/postgres/migrations"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

const selectColumns = `id, created_at, updated_at, namespace, "group", item, COALESCE(value, ''), format`

// Store implements record.Store using a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ record.Store = (*Store)(nil)

// Config holds pool settings.
type Config struct {
	URL             string
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

// NewStore connects, applies the embedded migrations and returns the store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres: database url is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.ConnConfig.Tracer = &pgxotel.QueryTracer{Name: "settings-store"}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	if err := migrations.RunMigrationsUp(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreFromPool wraps an existing pool without running migrations.
func NewStoreFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) All(ctx context.Context) ([]record.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM settings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return collect(rows)
}

func (s *Store) Group(ctx context.Context, namespace, group string) ([]record.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM settings WHERE namespace = $1 AND "group" = $2 ORDER BY id`,
		namespace, group)
	if err != nil {
		return nil, fmt.Errorf("query settings group: %w", err)
	}
	return collect(rows)
}

func (s *Store) Find(ctx context.Context, namespace, group, item string) (*record.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM settings WHERE namespace = $1 AND "group" = $2 AND item = $3`,
		namespace, group, item)
	if err != nil {
		return nil, fmt.Errorf("find setting: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find setting: %w", err)
	}
	return &rec, nil
}

func (s *Store) Save(ctx context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	const query = `
	INSERT INTO settings (namespace, "group", item, value, format)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (namespace, "group", item) DO UPDATE SET
		value = EXCLUDED.value,
		format = EXCLUDED.format,
		updated_at = now()
	RETURNING id, created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query, rec.Namespace, rec.Group, rec.Item, rec.Value, string(rec.Format)).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, group, item string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM settings WHERE namespace = $1 AND "group" = $2 AND item = $3`,
		namespace, group, item)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.CollectableRow) (record.Record, error) {
	var (
		rec    record.Record
		format string
	)
	err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &rec.Namespace, &rec.Group, &rec.Item, &rec.Value, &format)
	rec.Format = record.Format(format)
	return rec, err
}

func collect(rows pgx.Rows) ([]record.Record, error) {
	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	return out, nil
}
