// Package storage provides the SQLite persistence layer for tally.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps balance writes serialized; SQLite doesn't
	// benefit from more.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// queryable abstracts over *sql.DB and *sql.Tx so every query can run
// either standalone or inside a transaction.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateErr(fmt.Errorf("failed to begin transaction: %w", err))
	}

	return &sqliteTransaction{tx: tx, storage: s}, nil
}

// translateErr marks transient SQLite failures retryable so the poster's
// retry loop can re-run the write.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return common.MarkRetryable(err)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction. Every
// storage method delegates to the shared *Tx helpers with the transaction
// as the executor.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return translateErr(t.tx.Commit())
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	return t.storage.createAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return t.storage.getAccountTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetChildren(ctx context.Context, accountID string) ([]model.Account, error) {
	return t.storage.getChildrenTx(ctx, t.tx, accountID)
}

func (t *sqliteTransaction) ListAccounts(ctx context.Context, ownerID string) ([]model.Account, error) {
	return t.storage.listAccountsTx(ctx, t.tx, ownerID)
}

func (t *sqliteTransaction) TopLevelAccounts(ctx context.Context, ownerID string) ([]model.Account, error) {
	return t.storage.topLevelAccountsTx(ctx, t.tx, ownerID)
}

func (t *sqliteTransaction) ReparentAccount(ctx context.Context, accountID string, parentID *string) error {
	return t.storage.reparentAccountTx(ctx, t.tx, accountID, parentID)
}

func (t *sqliteTransaction) ApplyDelta(ctx context.Context, accountID string, delta money.Money) (*model.Account, error) {
	return t.storage.applyDeltaTx(ctx, t.tx, accountID, delta)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, category *model.Category) error {
	return t.storage.createCategoryTx(ctx, t.tx, category)
}

func (t *sqliteTransaction) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return t.storage.getCategoryTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListCategories(ctx context.Context, ownerID string) ([]model.Category, error) {
	return t.storage.listCategoriesTx(ctx, t.tx, ownerID)
}

func (t *sqliteTransaction) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	return t.storage.saveTransactionTx(ctx, t.tx, txn)
}

func (t *sqliteTransaction) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return t.storage.getTransactionTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) MarkReversed(ctx context.Context, id string, reversedAt time.Time) error {
	return t.storage.markReversedTx(ctx, t.tx, id, reversedAt)
}

func (t *sqliteTransaction) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	return t.storage.listTransactionsTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) CreateBudget(ctx context.Context, budget *model.Budget) error {
	return t.storage.createBudgetTx(ctx, t.tx, budget)
}

func (t *sqliteTransaction) GetBudget(ctx context.Context, ownerID string, fiscalYear int) (*model.Budget, error) {
	return t.storage.getBudgetTx(ctx, t.tx, ownerID, fiscalYear)
}

func (t *sqliteTransaction) ListBudgets(ctx context.Context, ownerID string) ([]model.Budget, error) {
	return t.storage.listBudgetsTx(ctx, t.tx, ownerID)
}

func (t *sqliteTransaction) DeleteBudget(ctx context.Context, id int64) error {
	return t.storage.deleteBudgetTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ReplaceTiers(ctx context.Context, tiers []model.Tier) error {
	return t.storage.replaceTiersTx(ctx, t.tx, tiers)
}

func (t *sqliteTransaction) ListTiers(ctx context.Context) ([]model.Tier, error) {
	return t.storage.listTiersTx(ctx, t.tx)
}

func (t *sqliteTransaction) SaveRate(ctx context.Context, rate money.Rate) error {
	return t.storage.saveRateTx(ctx, t.tx, rate)
}

func (t *sqliteTransaction) RateAsOf(ctx context.Context, base, quote string, asOf time.Time) (*money.Rate, error) {
	return t.storage.rateAsOfTx(ctx, t.tx, base, quote, asOf)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("migrate not supported inside a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("close not supported inside a transaction")
}
