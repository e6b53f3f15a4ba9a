package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds one DDL batch per schema version, oldest first.
// Version n is migrations[n-1].
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS locks (
			key        TEXT    PRIMARY KEY,
			owner      TEXT    NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_locks_expires ON locks(expires_at)`,
	},
}

// migrate brings the lock database up to len(migrations). Each pending
// version is applied and recorded in its own transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS lock_schema (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("sqlite: create lock_schema: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM lock_schema`).Scan(&current); err != nil {
		return fmt.Errorf("sqlite: current lock schema: %w", err)
	}

	for v := current + 1; v <= len(migrations); v++ {
		if err := applyVersion(ctx, db, v); err != nil {
			return err
		}
	}
	return nil
}

func applyVersion(ctx context.Context, db *sql.DB, v int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: lock schema v%d: %w", v, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migrations[v-1] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: lock schema v%d: %w", v, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO lock_schema (version) VALUES (?)`, v); err != nil {
		return fmt.Errorf("sqlite: lock schema v%d: %w", v, err)
	}
	return tx.Commit()
}
