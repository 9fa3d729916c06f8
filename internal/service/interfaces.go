// Package service defines the persistence contract the engine depends on.
// The engine never touches a concrete database; it sees accounts,
// categories, transactions, budgets, tiers, and rate snapshots as queryable
// collections with single-row atomic update support.
package service

import (
	"context"
	"time"

	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

// TransactionFilter restricts transaction scans. A zero AsOf means "now";
// passing an explicit cutoff gives the caller a consistent point-in-time
// view while posting continues.
type TransactionFilter struct {
	AsOf       time.Time
	OwnerID    string
	AccountID  string
	Status     model.TransactionStatus
	FiscalYear int
}

// Storage is the contract for the persistence layer.
type Storage interface {
	// Account operations. ApplyDelta is the only balance mutator: it
	// re-reads the balance, applies the signed delta, re-validates the
	// account type's invariant, and commits all-or-nothing.
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetChildren(ctx context.Context, accountID string) ([]model.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]model.Account, error)
	TopLevelAccounts(ctx context.Context, ownerID string) ([]model.Account, error)
	ReparentAccount(ctx context.Context, accountID string, parentID *string) error
	ApplyDelta(ctx context.Context, accountID string, delta money.Money) (*model.Account, error)

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, ownerID string) ([]model.Category, error)

	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	MarkReversed(ctx context.Context, id string, reversedAt time.Time) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Budget operations
	CreateBudget(ctx context.Context, budget *model.Budget) error
	GetBudget(ctx context.Context, ownerID string, fiscalYear int) (*model.Budget, error)
	ListBudgets(ctx context.Context, ownerID string) ([]model.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error

	// Tier configuration
	ReplaceTiers(ctx context.Context, tiers []model.Tier) error
	ListTiers(ctx context.Context) ([]model.Tier, error)

	// Exchange-rate snapshots
	SaveRate(ctx context.Context, rate money.Rate) error
	RateAsOf(ctx context.Context, base, quote string, asOf time.Time) (*money.Rate, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within the transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
