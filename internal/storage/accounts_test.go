package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

func TestCreateAndGetAccount(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	account := seedAccount(t, storage, "owner-1", "Checking", model.AccountTypePayment, "USD", "100")
	require.NotEmpty(t, account.ID)

	got, err := storage.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, account.Name, got.Name)
	assert.Equal(t, model.AccountTypePayment, got.Type)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "100", got.Balance.String())
	assert.Nil(t, got.ParentID)
	assert.Nil(t, got.CreditLimit)

	t.Run("missing account returns nil", func(t *testing.T) {
		got, err := storage.GetAccount(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("credit limit round-trips", func(t *testing.T) {
		card := seedAccount(t, storage, "owner-1", "Visa", model.AccountTypeCreditCard, "USD", "0")
		got, err := storage.GetAccount(ctx, card.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CreditLimit)
		assert.Equal(t, "500", got.CreditLimit.String())
	})
}

func TestAccountHierarchy(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	root := seedAccount(t, storage, "owner-1", "All Banks", model.AccountTypePayment, "USD", "0")

	child := &model.Account{
		OwnerID:  "owner-1",
		Name:     "Checking",
		Type:     model.AccountTypePayment,
		Currency: "USD",
		ParentID: &root.ID,
	}
	require.NoError(t, storage.CreateAccount(ctx, child))

	t.Run("children and top-level queries", func(t *testing.T) {
		children, err := storage.GetChildren(ctx, root.ID)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, child.ID, children[0].ID)

		top, err := storage.TopLevelAccounts(ctx, "owner-1")
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, root.ID, top[0].ID)
	})

	t.Run("parent must exist", func(t *testing.T) {
		ghost := "no-such-account"
		err := storage.CreateAccount(ctx, &model.Account{
			OwnerID: "owner-1", Name: "Orphan", Type: model.AccountTypePayment,
			Currency: "USD", ParentID: &ghost,
		})
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("parent must share the owner", func(t *testing.T) {
		err := storage.CreateAccount(ctx, &model.Account{
			OwnerID: "owner-2", Name: "Sneaky", Type: model.AccountTypePayment,
			Currency: "USD", ParentID: &root.ID,
		})
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("reparent moves the account", func(t *testing.T) {
		other := seedAccount(t, storage, "owner-1", "Other Bank", model.AccountTypePayment, "USD", "0")
		require.NoError(t, storage.ReparentAccount(ctx, child.ID, &other.ID))

		got, err := storage.GetAccount(ctx, child.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, other.ID, *got.ParentID)

		// Back under the original root for the cycle tests below.
		require.NoError(t, storage.ReparentAccount(ctx, child.ID, &root.ID))
	})

	t.Run("reparent to top level", func(t *testing.T) {
		lone := seedAccount(t, storage, "owner-1", "Lone", model.AccountTypePayment, "USD", "0")
		require.NoError(t, storage.ReparentAccount(ctx, lone.ID, &root.ID))
		require.NoError(t, storage.ReparentAccount(ctx, lone.ID, nil))

		got, err := storage.GetAccount(ctx, lone.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("self-parent is a cycle", func(t *testing.T) {
		err := storage.ReparentAccount(ctx, root.ID, &root.ID)
		assert.True(t, ledger.IsReason(err, ledger.ReasonCyclicHierarchy))
	})

	t.Run("parenting under a descendant is a cycle", func(t *testing.T) {
		err := storage.ReparentAccount(ctx, root.ID, &child.ID)
		assert.True(t, ledger.IsReason(err, ledger.ReasonCyclicHierarchy))
	})
}

func TestApplyDelta(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	account := seedAccount(t, storage, "owner-1", "Checking", model.AccountTypePayment, "USD", "100")

	t.Run("applies a signed delta", func(t *testing.T) {
		got, err := storage.ApplyDelta(ctx, account.ID, money.New(decimal.NewFromInt(-30), "USD"))
		require.NoError(t, err)
		assert.Equal(t, "70", got.Balance.String())

		got, err = storage.ApplyDelta(ctx, account.ID, money.New(decimal.RequireFromString("0.50"), "USD"))
		require.NoError(t, err)
		assert.Equal(t, "70.5", got.Balance.String())
	})

	t.Run("rejects a violating delta and writes nothing", func(t *testing.T) {
		_, err := storage.ApplyDelta(ctx, account.ID, money.New(decimal.NewFromInt(-1000), "USD"))
		require.Error(t, err)
		assert.Equal(t, ledger.KindInvariant, ledger.KindOf(err))
		assert.True(t, ledger.IsReason(err, ledger.ReasonBalanceInvariantViolation))

		got, err := storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "70.5", got.Balance.String())
	})

	t.Run("rejects a currency mismatch", func(t *testing.T) {
		_, err := storage.ApplyDelta(ctx, account.ID, money.New(decimal.NewFromInt(-1), "EUR"))
		require.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})

	t.Run("rejects an unknown account", func(t *testing.T) {
		_, err := storage.ApplyDelta(ctx, "no-such-account", money.New(decimal.NewFromInt(1), "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonAccountNotFound))
	})

	t.Run("credit card headroom is the bound", func(t *testing.T) {
		card := seedAccount(t, storage, "owner-1", "Visa", model.AccountTypeCreditCard, "USD", "0")

		got, err := storage.ApplyDelta(ctx, card.ID, money.New(decimal.NewFromInt(-500), "USD"))
		require.NoError(t, err)
		assert.Equal(t, "-500", got.Balance.String())

		_, err = storage.ApplyDelta(ctx, card.ID, money.New(decimal.RequireFromString("-0.01"), "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonBalanceInvariantViolation))
	})

	t.Run("debt account may go arbitrarily negative", func(t *testing.T) {
		debt := seedAccount(t, storage, "owner-1", "Mortgage", model.AccountTypeDebt, "USD", "0")
		got, err := storage.ApplyDelta(ctx, debt.ID, money.New(decimal.NewFromInt(-250000), "USD"))
		require.NoError(t, err)
		assert.Equal(t, "-250000", got.Balance.String())
	})
}
