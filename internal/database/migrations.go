package database

import (
	"database/sql"
	"fmt"
	"log"
)

// A migration is one idempotent schema step. Applied versions are recorded
// in schema_migrations so a store created by an older build is upgraded
// additively; nothing is ever dropped.
type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "accounts table",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS accounts (
				id BIGINT PRIMARY KEY,
				balance BIGINT NOT NULL DEFAULT 0,
				has_key BOOLEAN NOT NULL DEFAULT FALSE,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
	{
		version:     2,
		description: "roles table",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS roles (
				account_id BIGINT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
	{
		version:     3,
		description: "ledger log",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS ledger_log (
				id SERIAL PRIMARY KEY,
				account_id BIGINT NOT NULL,
				delta BIGINT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				actor_id BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
	{
		version:     4,
		description: "role images",
		statements: []string{
			`ALTER TABLE roles ADD COLUMN IF NOT EXISTS image_ref TEXT NOT NULL DEFAULT ''`,
		},
	},
}

// Migrate applies every unapplied migration in order. Safe to run on every
// startup and against a store created by any earlier version.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := db.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).
			Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.statements {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("[STORE] Applied migration %d: %s", m.version, m.description)
	}
	return nil
}
