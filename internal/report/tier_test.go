package report_test

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
	"github.com/jmhayes/tally/internal/report"
)

func tier(name string, spentMin, spentMax, balanceMin, balanceMax int64) model.Tier {
	return model.Tier{
		Name:       name,
		SpentMin:   decimal.NewFromInt(spentMin),
		SpentMax:   decimal.NewFromInt(spentMax),
		BalanceMin: decimal.NewFromInt(balanceMin),
		BalanceMax: decimal.NewFromInt(balanceMax),
	}
}

func TestValidateTiers(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []model.Tier
		wantErr bool
	}{
		{
			name: "disjoint ranges pass",
			tiers: []model.Tier{
				tier("Silver", 0, 999, 0, 4999),
				tier("Gold", 1000, 9999, 5000, 49999),
				tier("Platinum", 10000, 1000000, 50000, 10000000),
			},
		},
		{
			name:  "empty configuration passes",
			tiers: nil,
		},
		{
			name: "overlapping spend ranges fail",
			tiers: []model.Tier{
				tier("A", 0, 100, 0, 999),
				tier("B", 50, 150, 1000, 1999),
			},
			wantErr: true,
		},
		{
			name: "a shared boundary is an overlap",
			tiers: []model.Tier{
				tier("A", 0, 100, 0, 999),
				tier("B", 100, 200, 1000, 1999),
			},
			wantErr: true,
		},
		{
			name: "overlapping balance ranges fail",
			tiers: []model.Tier{
				tier("A", 0, 100, 0, 1500),
				tier("B", 101, 200, 1000, 1999),
			},
			wantErr: true,
		},
		{
			name: "inverted range fails",
			tiers: []model.Tier{
				tier("A", 100, 0, 0, 999),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := report.ValidateTiers(tt.tiers)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ledger.KindConfiguration, ledger.KindOf(err))
				assert.True(t, ledger.IsReason(err, ledger.ReasonAmbiguousTierConfiguration))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	evaluator := report.NewEvaluator(l.store, money.NewRateConverter(l.store), "USD")

	require.NoError(t, l.store.ReplaceTiers(ctx, []model.Tier{
		tier("Silver", 0, 999, 0, 4999),
		tier("Gold", 1000, 9999, 5000, 49999),
	}))

	checking := l.account(t, "owner-1", "Checking", "7200")
	dining := l.category(t, "owner-1", "Dining", model.CategoryTypeExpense)

	mar := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	l.post(t, "owner-1", checking.ID, dining.ID, model.TransactionTypeExpense, "1200", mar)

	t.Run("both ranges must contain the figures", func(t *testing.T) {
		assignment, err := evaluator.Evaluate(ctx, "owner-1", asOf)
		require.NoError(t, err)
		require.True(t, assignment.Matched)
		assert.Equal(t, "Gold", assignment.Tier.Name)
		assert.Equal(t, "1200 USD", assignment.Spent.String())
		assert.Equal(t, "6000 USD", assignment.Balance.String())
	})

	t.Run("no containing tier is a valid outcome", func(t *testing.T) {
		l.account(t, "owner-2", "Vault", "100000")

		assignment, err := evaluator.Evaluate(ctx, "owner-2", asOf)
		require.NoError(t, err)
		assert.False(t, assignment.Matched)
		assert.Nil(t, assignment.Tier)
		assert.True(t, assignment.Spent.IsZero())
		assert.Equal(t, "100000 USD", assignment.Balance.String())
	})

	t.Run("an ambiguous configuration fails closed", func(t *testing.T) {
		require.NoError(t, l.store.ReplaceTiers(ctx, []model.Tier{
			tier("A", 0, 100, 0, 999),
			tier("B", 50, 150, 1000, 1999),
		}))

		_, err := evaluator.Evaluate(ctx, "owner-1", asOf)
		require.Error(t, err)
		assert.True(t, ledger.IsReason(err, ledger.ReasonAmbiguousTierConfiguration))
	})
}
