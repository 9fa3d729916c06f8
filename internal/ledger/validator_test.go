package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

func TestValidate(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	converter := money.NewRateConverter(store)
	validator := ledger.NewValidator(store, converter)

	checking := newAccount(t, store, "owner-1", "Checking", model.AccountTypePayment, "USD", "100", "")
	savings := newAccount(t, store, "owner-1", "Savings", model.AccountTypeSaving, "USD", "1000", "")
	card := newAccount(t, store, "owner-1", "Visa", model.AccountTypeCreditCard, "USD", "0", "500")
	groceries := newCategory(t, store, "owner-1", "Groceries", model.CategoryTypeExpense)
	salary := newCategory(t, store, "owner-1", "Salary", model.CategoryTypeIncome)

	occurred := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	draft := func(accountID string, typ model.TransactionType, categoryID int64, amount, currency string) ledger.Draft {
		return ledger.Draft{
			OwnerID:    "owner-1",
			AccountID:  accountID,
			Type:       typ,
			CategoryID: categoryID,
			Amount:     money.New(decimal.RequireFromString(amount), currency),
			OccurredAt: occurred,
		}
	}

	t.Run("valid expense passes", func(t *testing.T) {
		checked, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, groceries.ID, "30", "USD"))
		require.NoError(t, err)
		assert.Equal(t, checking.ID, checked.Account.ID)
		assert.Equal(t, groceries.ID, checked.Category.ID)
		assert.Equal(t, "30 USD", checked.Converted.String())
	})

	t.Run("valid income passes", func(t *testing.T) {
		checked, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeIncome, salary.ID, "2500", "USD"))
		require.NoError(t, err)
		assert.Equal(t, "2500 USD", checked.Converted.String())
	})

	t.Run("unknown transaction type", func(t *testing.T) {
		d := draft(checking.ID, model.TransactionType("transfer"), groceries.ID, "30", "USD")
		_, err := validator.Validate(ctx, d)
		assert.True(t, ledger.IsReason(err, ledger.ReasonInvalidTransactionType))
	})

	t.Run("non-positive amount", func(t *testing.T) {
		for _, amount := range []string{"0", "-10"} {
			_, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, groceries.ID, amount, "USD"))
			assert.True(t, ledger.IsReason(err, ledger.ReasonInvalidAmount))
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, 99999, "30", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonCategoryNotFound))
		assert.Equal(t, ledger.KindValidation, ledger.KindOf(err))
	})

	t.Run("category type must match transaction type", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, salary.ID, "30", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonCategoryTypeMismatch))

		_, err = validator.Validate(ctx, draft(checking.ID, model.TransactionTypeIncome, groceries.ID, "30", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonCategoryTypeMismatch))
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft("no-such-account", model.TransactionTypeExpense, groceries.ID, "30", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonAccountNotFound))
	})

	t.Run("income only lands on payment accounts", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(card.ID, model.TransactionTypeIncome, salary.ID, "100", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonInvalidAccountTypeForIncome))

		_, err = validator.Validate(ctx, draft(savings.ID, model.TransactionTypeIncome, salary.ID, "100", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonInvalidAccountTypeForIncome))
	})

	t.Run("expense rejected on saving accounts", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(savings.ID, model.TransactionTypeExpense, groceries.ID, "30", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonInvalidAccountTypeForExpense))
	})

	t.Run("expense allowed on credit cards within headroom", func(t *testing.T) {
		checked, err := validator.Validate(ctx, draft(card.ID, model.TransactionTypeExpense, groceries.ID, "400", "USD"))
		require.NoError(t, err)
		assert.Equal(t, card.ID, checked.Account.ID)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, groceries.ID, "1000", "USD"))
		require.Error(t, err)
		assert.Equal(t, ledger.KindInsufficientFunds, ledger.KindOf(err))
		assert.True(t, ledger.IsReason(err, ledger.ReasonInsufficientBalance))
	})

	t.Run("insufficient credit headroom", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(card.ID, model.TransactionTypeExpense, groceries.ID, "501", "USD"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonInsufficientCreditLimit))
	})

	t.Run("sufficiency is checked on the converted amount", func(t *testing.T) {
		addRate(t, store, "EUR", "USD", "1.10", "2025-01-01")

		// 100 EUR converts to 110 USD, above the 100 USD balance.
		_, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, groceries.ID, "100", "EUR"))
		assert.True(t, ledger.IsReason(err, ledger.ReasonInsufficientBalance))

		checked, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, groceries.ID, "50", "EUR"))
		require.NoError(t, err)
		assert.Equal(t, "55 USD", checked.Converted.String())
	})

	t.Run("missing rate fails with conversion kind", func(t *testing.T) {
		_, err := validator.Validate(ctx, draft(checking.ID, model.TransactionTypeExpense, groceries.ID, "30", "GBP"))
		require.Error(t, err)
		assert.Equal(t, ledger.KindConversion, ledger.KindOf(err))
		assert.True(t, ledger.IsReason(err, ledger.ReasonNoRateAvailable))
	})

	t.Run("rejection never mutates balances", func(t *testing.T) {
		got, err := store.GetAccount(ctx, checking.ID)
		require.NoError(t, err)
		assert.Equal(t, "100", got.Balance.String())
	})
}
