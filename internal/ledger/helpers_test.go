package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
	"github.com/jmhayes/tally/internal/storage"
)

func listAll(owner string) service.TransactionFilter {
	return service.TransactionFilter{OwnerID: owner}
}

// createTestStore creates a migrated SQLite store in a temp directory.
func createTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newAccount(t *testing.T, store *storage.SQLiteStorage, owner, name string, typ model.AccountType, currency, balance string, creditLimit string) *model.Account {
	t.Helper()

	account := &model.Account{
		OwnerID:  owner,
		Name:     name,
		Type:     typ,
		Currency: currency,
		Balance:  decimal.RequireFromString(balance),
	}
	if creditLimit != "" {
		limit := decimal.RequireFromString(creditLimit)
		account.CreditLimit = &limit
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func newCategory(t *testing.T, store *storage.SQLiteStorage, owner, name string, typ model.CategoryType) *model.Category {
	t.Helper()

	category := &model.Category{OwnerID: owner, Name: name, Type: typ}
	require.NoError(t, store.CreateCategory(context.Background(), category))
	return category
}

func addRate(t *testing.T, store *storage.SQLiteStorage, base, quote, rate string, effectiveAt string) {
	t.Helper()

	at, err := time.Parse("2006-01-02", effectiveAt)
	require.NoError(t, err)
	require.NoError(t, store.SaveRate(context.Background(), money.Rate{
		Base:        base,
		Quote:       quote,
		Rate:        decimal.RequireFromString(rate),
		EffectiveAt: at,
	}))
}
