package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhayes/tally/internal/model"
)

func TestReplaceAndListTiers(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	tiers := []model.Tier{
		{
			Name:       "Silver",
			SpentMin:   decimal.Zero,
			SpentMax:   decimal.NewFromInt(999),
			BalanceMin: decimal.Zero,
			BalanceMax: decimal.NewFromInt(4999),
			Benefits:   []string{"base cashback"},
		},
		{
			Name:       "Gold",
			SpentMin:   decimal.NewFromInt(1000),
			SpentMax:   decimal.NewFromInt(9999),
			BalanceMin: decimal.NewFromInt(5000),
			BalanceMax: decimal.NewFromInt(49999),
			Benefits:   []string{"base cashback", "lounge access"},
		},
	}
	require.NoError(t, storage.ReplaceTiers(ctx, tiers))

	got, err := storage.ListTiers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Silver", got[0].Name)
	assert.Equal(t, "Gold", got[1].Name)
	assert.Equal(t, "999", got[0].SpentMax.String())
	assert.Equal(t, []string{"base cashback", "lounge access"}, got[1].Benefits)

	t.Run("replace swaps the whole configuration", func(t *testing.T) {
		require.NoError(t, storage.ReplaceTiers(ctx, []model.Tier{{
			Name:       "Everyone",
			SpentMin:   decimal.Zero,
			SpentMax:   decimal.NewFromInt(1000000),
			BalanceMin: decimal.Zero,
			BalanceMax: decimal.NewFromInt(1000000),
		}}))

		got, err := storage.ListTiers(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Everyone", got[0].Name)
	})

	t.Run("empty configuration is allowed", func(t *testing.T) {
		require.NoError(t, storage.ReplaceTiers(ctx, nil))

		got, err := storage.ListTiers(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unnamed tier rejected", func(t *testing.T) {
		err := storage.ReplaceTiers(ctx, []model.Tier{{Name: "  "}})
		require.ErrorIs(t, err, ErrEmptyString)
	})
}
