package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

// createTestStorage creates a migrated storage backed by a temp database.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.Migrate(ctx))

	t.Cleanup(func() {
		_ = storage.Close()
	})
	return storage
}

// seedAccount inserts an account with the given opening balance.
func seedAccount(t *testing.T, s *SQLiteStorage, owner, name string, typ model.AccountType, currency, balance string) *model.Account {
	t.Helper()

	account := &model.Account{
		OwnerID:  owner,
		Name:     name,
		Type:     typ,
		Currency: currency,
		Balance:  decimal.RequireFromString(balance),
	}
	if typ == model.AccountTypeCreditCard {
		limit := decimal.NewFromInt(500)
		account.CreditLimit = &limit
	}
	require.NoError(t, s.CreateAccount(context.Background(), account))
	return account
}

// seedCategory inserts a category and returns it with its assigned id.
func seedCategory(t *testing.T, s *SQLiteStorage, owner, name string, typ model.CategoryType) *model.Category {
	t.Helper()

	category := &model.Category{OwnerID: owner, Name: name, Type: typ}
	require.NoError(t, s.CreateCategory(context.Background(), category))
	return category
}

func TestMigrate(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	// Running migrations again must be a no-op.
	require.NoError(t, storage.Migrate(ctx))

	var version int
	require.NoError(t, storage.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	require.Equal(t, ExpectedSchemaVersion, version)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	account := seedAccount(t, storage, "owner-1", "Checking", model.AccountTypePayment, "USD", "100")

	t.Run("rollback leaves no trace", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)

		_, err = tx.ApplyDelta(ctx, account.ID, money.New(decimal.NewFromInt(-40), "USD"))
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		got, err := storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, "100", got.Balance.String())
	})

	t.Run("commit persists", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)

		_, err = tx.ApplyDelta(ctx, account.ID, money.New(decimal.NewFromInt(-40), "USD"))
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		got, err := storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, "60", got.Balance.String())
	})

	t.Run("nested transactions are rejected", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.BeginTx(ctx)
		require.Error(t, err)
	})
}

func TestValidateInputs(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := storage.GetAccount(ctx, "")
		require.ErrorIs(t, err, ErrEmptyString)
	})

	t.Run("nil account rejected", func(t *testing.T) {
		require.ErrorIs(t, storage.CreateAccount(ctx, nil), ErrNilParameter)
	})

	t.Run("unknown currency rejected", func(t *testing.T) {
		err := storage.CreateAccount(ctx, &model.Account{
			OwnerID: "owner-1", Name: "Bad", Type: model.AccountTypePayment, Currency: "ZZZ",
		})
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("credit limit on non-card rejected", func(t *testing.T) {
		limit := decimal.NewFromInt(100)
		err := storage.CreateAccount(ctx, &model.Account{
			OwnerID: "owner-1", Name: "Bad", Type: model.AccountTypeSaving,
			Currency: "USD", CreditLimit: &limit,
		})
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("card without limit rejected", func(t *testing.T) {
		err := storage.CreateAccount(ctx, &model.Account{
			OwnerID: "owner-1", Name: "Bad", Type: model.AccountTypeCreditCard, Currency: "USD",
		})
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("same-pair rate rejected", func(t *testing.T) {
		err := storage.SaveRate(ctx, money.Rate{Base: "USD", Quote: "USD",
			Rate: decimal.NewFromInt(1), EffectiveAt: time.Now()})
		require.ErrorIs(t, err, ErrInvalidRate)
	})
}
