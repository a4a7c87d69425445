package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/epieletronica-png/wa-ia/internal/shared"
	_ "modernc.org/sqlite"
)

const sqliteBackendName = "sqlite"

// SQLiteBackend implements Backend using a single SQLite table.
// Expired rows are invisible to reads and removed by Sweep.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time
	mu  sync.Mutex // serializes writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed key/value backend.
func NewSQLite(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteBackend{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteBackend) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS session_kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_kv_expires ON session_kv(expires_at) WHERE expires_at > 0;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get implements Backend.
func (s *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM session_kv WHERE key = ?`, key)

	var value string
	var expiresAt int64
	err := row.Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, backendErr(sqliteBackendName, "get", key, err)
	}
	if expiresAt > 0 && expiresAt <= s.now().UnixNano() {
		return "", false, nil
	}
	return value, true, nil
}

// Set implements Backend.
func (s *SQLiteBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	query := `
	INSERT INTO session_kv (key, value, expires_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		expires_at = excluded.expires_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, key, value, expiresAt, now.Unix())
	return backendErr(sqliteBackendName, "set", key, err)
}

// Delete implements Backend.
// Retries with exponential backoff while the database reports SQLITE_BUSY.
func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.deleteOnce(ctx, key)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("sqlite delete hit SQLITE_BUSY, retrying",
			"key", key,
			"attempt", i+1,
			"delay", delay)
		time.Sleep(delay)
	}
	return backendErr(sqliteBackendName, "delete", key, err)
}

func (s *SQLiteBackend) deleteOnce(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, key)
	return err
}

// Keys implements Backend.
func (s *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT key FROM session_kv
		WHERE key LIKE ? ESCAPE '\' AND (expires_at = 0 OR expires_at > ?)
		ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, escapeLike(prefix)+"%", s.now().UnixNano())
	if err != nil {
		return nil, backendErr(sqliteBackendName, "keys", prefix, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session key rows", "error", closeErr)
		}
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, backendErr(sqliteBackendName, "keys", prefix, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(sqliteBackendName, "keys", prefix, err)
	}
	return keys, nil
}

// Sweep deletes expired rows and returns how many were removed.
func (s *SQLiteBackend) Sweep(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE expires_at > 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, backendErr(sqliteBackendName, "sweep", "", err)
	}
	return result.RowsAffected()
}

// Ping implements Backend.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	return backendErr(sqliteBackendName, "ping", "", s.db.PingContext(ctx))
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
