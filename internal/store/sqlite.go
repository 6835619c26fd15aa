package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/pbaille/checkin/internal/store/migrations"
)

// SQLiteStore keeps the profile's key-value pairs in a single SQLite table
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// Option configures a SQLiteStore
type Option func(*SQLiteStore)

// WithQuota caps the total size of keys plus values. Zero disables the cap.
func WithQuota(bytes int64) Option {
	return func(s *SQLiteStore) {
		s.quota = bytes
	}
}

// New opens the database at dbPath and applies pending migrations
func New(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and writes serialized.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or nil if there is none
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrStoreUnavailable, key, err)
	}
	return value, nil
}

// Set upserts key, refusing writes that would push the store past its quota
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if s.quota > 0 {
		var used int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv WHERE key <> ?",
			key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("%w: measure usage: %w", ErrStoreUnavailable, err)
		}
		if used+entrySize(key, value) > s.quota {
			return fmt.Errorf("%w: set %s needs %d bytes, %d of %d in use",
				ErrStoreQuotaExceeded, key, entrySize(key, value), used, s.quota)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return classify("set "+key, err)
	}
	return nil
}

// Remove deletes key if present
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return classify("remove "+key, err)
	}
	return nil
}

// classify maps a driver error onto the store's error taxonomy
func classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
		return fmt.Errorf("%w: %s: %w", ErrStoreQuotaExceeded, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
