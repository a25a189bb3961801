package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
	Down    string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE TABLE IF NOT EXISTS webhook_deliveries (
				id UUID PRIMARY KEY,
				provider VARCHAR(32) NOT NULL,
				message_id VARCHAR(255),
				event_type VARCHAR(128) NOT NULL,
				outcome VARCHAR(32) NOT NULL,
				received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_received ON webhook_deliveries(received_at DESC);
		`,
		Down: `
			DROP TABLE IF EXISTS webhook_deliveries;
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_provider_message
				ON webhook_deliveries(provider, message_id)
				WHERE message_id IS NOT NULL;
		`,
		Down: `
			DROP INDEX IF EXISTS idx_webhook_deliveries_provider_message;
		`,
	},
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	AppliedAt time.Time
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	// Ensure migrations table exists
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	// Get current version
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return err
	}

	// Run pending migrations in ascending order by version
	for _, migration := range sortedMigrations() {
		if migration.Version <= currentVersion {
			continue
		}

		log.Printf("Running migration %d...", migration.Version)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Printf("Migration %d completed", migration.Version)
	}

	return nil
}

// RollbackLast reverts the most recently applied migration.
func RollbackLast(db *sql.DB) (int, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return 0, err
	}
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return 0, err
	}
	if currentVersion == 0 {
		return 0, nil
	}

	var target *Migration
	for _, m := range Migrations {
		if m.Version == currentVersion {
			m := m
			target = &m
			break
		}
	}
	if target == nil {
		return 0, fmt.Errorf("migration %d is applied but unknown to this binary", currentVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Exec(target.Down); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to roll back migration %d: %w", target.Version, err)
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = $1", target.Version); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to unrecord migration %d: %w", target.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rollback of %d: %w", target.Version, err)
	}
	return target.Version, nil
}

// Applied lists applied migrations in version order.
func Applied(db *sql.DB) ([]AppliedMigration, error) {
	rows, err := db.Query("SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
