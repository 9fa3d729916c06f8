package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTierContains(t *testing.T) {
	gold := Tier{
		Name:       "Gold",
		SpentMin:   decimal.NewFromInt(1000),
		SpentMax:   decimal.NewFromInt(9999),
		BalanceMin: decimal.NewFromInt(5000),
		BalanceMax: decimal.NewFromInt(49999),
	}

	in := func(spent, balance int64) bool {
		return gold.Contains(decimal.NewFromInt(spent), decimal.NewFromInt(balance))
	}

	assert.True(t, in(1200, 6000))
	// Bounds are inclusive on both ends.
	assert.True(t, in(1000, 5000))
	assert.True(t, in(9999, 49999))

	assert.False(t, in(999, 6000))
	assert.False(t, in(10000, 6000))
	assert.False(t, in(1200, 4999))
	assert.False(t, in(1200, 50000))
}
