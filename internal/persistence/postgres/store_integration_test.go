//go:build integration

// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/record/recordtest"
)

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// setupTestDatabase creates a throwaway database and returns its URL.
func setupTestDatabase(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	host := getEnvOrDefault("SETTINGS_PG_HOST", "localhost")
	port := getEnvOrDefault("SETTINGS_PG_PORT", "5432")
	user := getEnvOrDefault("SETTINGS_PG_USER", os.Getenv("USER"))
	password := os.Getenv("SETTINGS_PG_PASSWORD")
	baseDB := getEnvOrDefault("SETTINGS_PG_DBNAME", "postgres")

	auth := user
	if password != "" {
		auth = user + ":" + password
	}
	baseURL := fmt.Sprintf("postgresql://%s@%s:%s/%s?sslmode=disable", auth, host, port, baseDB)

	basePool, err := pgxpool.New(ctx, baseURL)
	if err != nil {
		t.Fatalf("connect to base database: %v", err)
	}
	defer basePool.Close()

	dbName := fmt.Sprintf("test_settings_%d_%d", time.Now().Unix(), rand.Intn(100000))
	if _, err := basePool.Exec(ctx, "CREATE DATABASE "+dbName); err != nil {
		t.Fatalf("create test database: %v", err)
	}
	t.Cleanup(func() {
		cleanup, err := pgxpool.New(context.Background(), baseURL)
		if err != nil {
			return
		}
		defer cleanup.Close()
		_, _ = cleanup.Exec(context.Background(), "DROP DATABASE IF EXISTS "+dbName+" WITH (FORCE)")
	})

	return fmt.Sprintf("postgresql://%s@%s:%s/%s?sslmode=disable", auth, host, port, dbName)
}

func TestStore_Contract(t *testing.T) {
	recordtest.RunStoreSuite(t, func(t *testing.T) record.Store {
		s, err := NewStore(context.Background(), Config{URL: setupTestDatabase(t)})
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		return s
	})
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	url := setupTestDatabase(t)
	ctx := context.Background()

	first, err := NewStore(ctx, Config{URL: url})
	if err != nil {
		t.Fatalf("first NewStore: %v", err)
	}
	_ = first.Close()

	second, err := NewStore(ctx, Config{URL: url})
	if err != nil {
		t.Fatalf("second NewStore: %v", err)
	}
	_ = second.Close()
}
