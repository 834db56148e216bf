package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/001_initial.up.sql
var initialMigrationSQL string

// schemaLockKey serializes schema setup across instances starting together.
const schemaLockKey int64 = 0x6d6564636f6e6e

var requiredTables = []string{
	"identity_codes",
	"access_tokens",
	"requester_patient_connections",
	"audit_events",
	"reports",
	"clinical_entries",
}

// EnsureSchema applies the embedded migration when any required table is missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return errors.New("database pool is not initialized")
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	missing, err := missingTables(ctx, tx)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}
	if len(missing) == 0 {
		slog.Info("database schema up to date")
		return tx.Commit(ctx)
	}

	slog.Info("applying initial migration", "missing_tables", missing)
	if _, err := tx.Exec(ctx, initialMigrationSQL); err != nil {
		return fmt.Errorf("apply initial migration: %w", err)
	}

	missing, err = missingTables(ctx, tx)
	if err != nil {
		return fmt.Errorf("re-check tables after migration: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema initialization incomplete: missing %v", missing)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	slog.Info("database schema ensured")
	return nil
}

func missingTables(ctx context.Context, tx pgx.Tx) ([]string, error) {
	rows, err := tx.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name = ANY($1)
	`, requiredTables)
	if err != nil {
		return nil, err
	}

	present, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range requiredTables {
		if !slices.Contains(present, name) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
