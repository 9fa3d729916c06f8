package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	err := E(KindInsufficientFunds, ReasonInsufficientBalance, "acct-1")

	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.True(t, IsReason(err, ReasonInsufficientBalance))
	assert.False(t, IsReason(err, ReasonInsufficientCreditLimit))
	assert.Contains(t, err.Error(), "acct-1")

	t.Run("classification survives wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("posting failed: %w", err)
		assert.Equal(t, KindInsufficientFunds, KindOf(wrapped))
		assert.True(t, IsReason(wrapped, ReasonInsufficientBalance))
	})

	t.Run("wrap keeps the cause", func(t *testing.T) {
		cause := errors.New("no snapshot for USD/EUR")
		err := Wrap(KindConversion, ReasonNoRateAvailable, "acct-2", cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, KindConversion, KindOf(err))
	})

	t.Run("non-engine errors have no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
		assert.False(t, IsReason(errors.New("plain"), ReasonInsufficientBalance))
	})
}
