// Package sqlite implements a persistent keyed lock store on SQLite, so
// overlap prevention holds across processes sharing the database file.
// It uses modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/taskrun/internal/task"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Compile-time interface guards.
var (
	_ task.LockStore    = (*Store)(nil)
	_ task.LockAcquirer = (*Store)(nil)
)

// Store is a task.LockStore backed by SQLite. Each Store has a random
// owner id recorded with the locks it sets.
type Store struct {
	db     *sql.DB
	owner  string
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the lock database described by cfg. A relative or
// empty path is resolved against dataDir.
func Open(ctx context.Context, cfg Config, dataDir string, logger *slog.Logger) (*Store, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	path := cfg.Path
	if path == "" {
		path = defaultDBFile
	}
	if !filepath.IsAbs(path) && dataDir != "" {
		path = filepath.Join(dataDir, path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, owner: uuid.NewString(), logger: logger, now: time.Now}
	logger.Info("sqlite lock store opened",
		"path", path,
		"wal", cfg.walEnabled(),
		"owner", s.owner,
	)
	return s, nil
}

// Has reports whether key is held and not expired.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM locks WHERE key = ? AND expires_at > ?",
		key, s.now().UnixMilli(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: has lock: %w", err)
	}
	return n > 0, nil
}

// Set holds key for ttl, replacing any previous holder.
func (s *Store) Set(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO locks (key, owner, expires_at)
		VALUES (?, ?, ?)`,
		key, s.owner, s.now().Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set lock: %w", err)
	}
	return nil
}

// Acquire takes key for ttl in a single statement: the row is inserted, or
// overwritten only when the previous lock has expired. Concurrent callers
// on the same database see exactly one success.
func (s *Store) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO locks (key, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			owner      = excluded.owner,
			expires_at = excluded.expires_at,
			created_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE locks.expires_at <= ?`,
		key, s.owner, now.Add(ttl).UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: acquire lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: acquire lock: %w", err)
	}
	return n == 1, nil
}

// Delete releases key whoever holds it.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM locks WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite: delete lock: %w", err)
	}
	return nil
}

// Purge deletes expired locks and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM locks WHERE expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge locks: %w", err)
	}
	if n > 0 {
		s.logger.Debug("sqlite lock store purged", "expired", n)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.logger.Info("sqlite lock store closing")
	return s.db.Close()
}
