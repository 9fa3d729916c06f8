package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Accounts, categories, and the transaction ledger",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					type TEXT NOT NULL,
					currency TEXT NOT NULL,
					balance TEXT NOT NULL DEFAULT '0',
					credit_limit TEXT,
					parent_id TEXT REFERENCES accounts(id),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounts_owner ON accounts(owner_id)`,
				`CREATE INDEX idx_accounts_parent ON accounts(parent_id)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					type TEXT NOT NULL,
					parent_id INTEGER REFERENCES categories(id),
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(owner_id, name)
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					account_id TEXT NOT NULL REFERENCES accounts(id),
					category_id INTEGER NOT NULL REFERENCES categories(id),
					type TEXT NOT NULL,
					amount TEXT NOT NULL,
					currency TEXT NOT NULL,
					converted_amount TEXT NOT NULL,
					account_currency TEXT NOT NULL,
					occurred_at DATETIME NOT NULL,
					fiscal_year INTEGER NOT NULL,
					status TEXT NOT NULL DEFAULT 'posted',
					posted_at DATETIME NOT NULL,
					reversed_at DATETIME
				)`,
				`CREATE INDEX idx_transactions_owner_year ON transactions(owner_id, fiscal_year)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,
				`CREATE INDEX idx_transactions_occurred ON transactions(occurred_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Budgets and membership tiers",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS budgets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id TEXT NOT NULL,
					fiscal_year INTEGER NOT NULL,
					currency TEXT NOT NULL,
					estimated_expense TEXT NOT NULL DEFAULT '0',
					estimated_income TEXT NOT NULL DEFAULT '0',
					description TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(owner_id, fiscal_year)
				)`,

				`CREATE TABLE IF NOT EXISTS tiers (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					spent_min TEXT NOT NULL,
					spent_max TEXT NOT NULL,
					balance_min TEXT NOT NULL,
					balance_max TEXT NOT NULL,
					benefits TEXT NOT NULL DEFAULT '[]'
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Exchange-rate snapshots",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS exchange_rates (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					base TEXT NOT NULL,
					quote TEXT NOT NULL,
					rate TEXT NOT NULL,
					effective_at DATETIME NOT NULL,
					UNIQUE(base, quote, effective_at)
				)`,
				`CREATE INDEX idx_rates_pair_effective ON exchange_rates(base, quote, effective_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
