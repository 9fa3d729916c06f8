package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
)

func TestBudgets(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	budget := &model.Budget{
		OwnerID:          "owner-1",
		FiscalYear:       2025,
		Currency:         "USD",
		EstimatedExpense: decimal.NewFromInt(24000),
		EstimatedIncome:  decimal.NewFromInt(60000),
		Description:      "household",
	}
	require.NoError(t, storage.CreateBudget(ctx, budget))
	require.NotZero(t, budget.ID)

	t.Run("get by owner and year", func(t *testing.T) {
		got, err := storage.GetBudget(ctx, "owner-1", 2025)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "24000", got.EstimatedExpense.String())
		assert.Equal(t, "60000", got.EstimatedIncome.String())
		assert.Equal(t, "household", got.Description)
	})

	t.Run("missing year returns nil", func(t *testing.T) {
		got, err := storage.GetBudget(ctx, "owner-1", 1999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("one budget per owner per fiscal year", func(t *testing.T) {
		err := storage.CreateBudget(ctx, &model.Budget{
			OwnerID: "owner-1", FiscalYear: 2025, Currency: "USD",
		})
		require.Error(t, err)
		assert.Equal(t, ledger.KindConfiguration, ledger.KindOf(err))
		assert.True(t, ledger.IsReason(err, ledger.ReasonDuplicateFiscalYear))
	})

	t.Run("same year for another owner is fine", func(t *testing.T) {
		err := storage.CreateBudget(ctx, &model.Budget{
			OwnerID: "owner-2", FiscalYear: 2025, Currency: "EUR",
		})
		require.NoError(t, err)
	})

	t.Run("list newest fiscal year first", func(t *testing.T) {
		require.NoError(t, storage.CreateBudget(ctx, &model.Budget{
			OwnerID: "owner-1", FiscalYear: 2024, Currency: "USD",
		}))

		budgets, err := storage.ListBudgets(ctx, "owner-1")
		require.NoError(t, err)
		require.Len(t, budgets, 2)
		assert.Equal(t, 2025, budgets[0].FiscalYear)
		assert.Equal(t, 2024, budgets[1].FiscalYear)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, storage.DeleteBudget(ctx, budget.ID))

		got, err := storage.GetBudget(ctx, "owner-1", 2025)
		require.NoError(t, err)
		assert.Nil(t, got)

		require.ErrorIs(t, storage.DeleteBudget(ctx, budget.ID), common.ErrNotFound)
	})

	t.Run("negative estimate rejected", func(t *testing.T) {
		err := storage.CreateBudget(ctx, &model.Budget{
			OwnerID: "owner-1", FiscalYear: 2026, Currency: "USD",
			EstimatedExpense: decimal.NewFromInt(-1),
		})
		require.ErrorIs(t, err, ErrInvalidBudget)
	})
}
