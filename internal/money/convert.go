package money

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoRateAvailable indicates that no exchange-rate snapshot is effective
// at or before the requested time. Callers must not fall back to a guessed
// rate; a silently wrong rate corrupts the ledger.
var ErrNoRateAvailable = errors.New("no exchange rate available")

// Rate is an exchange-rate snapshot: one unit of Base buys Rate units of
// Quote, effective from EffectiveAt until superseded.
type Rate struct {
	EffectiveAt time.Time
	Base        string
	Quote       string
	Rate        decimal.Decimal
}

// RateSource looks up the snapshot effective at or before asOf for a
// currency pair. A nil result with a nil error means no snapshot exists.
type RateSource interface {
	RateAsOf(ctx context.Context, base, quote string, asOf time.Time) (*Rate, error)
}

// Converter converts an amount into another currency using the rate
// snapshot effective at asOf. Conversion is deterministic and idempotent:
// the same arguments always yield the same result, which is why converted
// amounts are persisted once at post time rather than recomputed.
type Converter interface {
	Convert(ctx context.Context, m Money, toCurrency string, asOf time.Time) (Money, error)
}

// RateConverter implements Converter on top of a RateSource. When no direct
// snapshot exists for the pair it tries the inverse pair before failing.
type RateConverter struct {
	source RateSource
}

// NewRateConverter returns a Converter backed by the given source.
func NewRateConverter(source RateSource) *RateConverter {
	return &RateConverter{source: source}
}

// Convert implements Converter. Converting into the amount's own currency
// is the identity and needs no snapshot.
func (c *RateConverter) Convert(ctx context.Context, m Money, toCurrency string, asOf time.Time) (Money, error) {
	if m.Currency() == toCurrency {
		return m, nil
	}
	if !KnownCurrency(toCurrency) {
		return Money{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, toCurrency)
	}

	rate, err := c.source.RateAsOf(ctx, m.Currency(), toCurrency, asOf)
	if err != nil {
		return Money{}, fmt.Errorf("rate lookup %s->%s: %w", m.Currency(), toCurrency, err)
	}
	if rate != nil {
		return New(m.Amount().Mul(rate.Rate), toCurrency).Round(), nil
	}

	inverse, err := c.source.RateAsOf(ctx, toCurrency, m.Currency(), asOf)
	if err != nil {
		return Money{}, fmt.Errorf("rate lookup %s->%s: %w", toCurrency, m.Currency(), err)
	}
	if inverse == nil || inverse.Rate.IsZero() {
		return Money{}, fmt.Errorf("%w: %s->%s as of %s",
			ErrNoRateAvailable, m.Currency(), toCurrency, asOf.Format(time.RFC3339))
	}
	return New(m.Amount().Div(inverse.Rate), toCurrency).Round(), nil
}
