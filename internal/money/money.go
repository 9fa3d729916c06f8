// Package money provides the fixed-point monetary amount type and the
// exchange-rate conversion used throughout the ledger. Amounts are exact
// decimals; float64 never enters a calculation.
package money

import (
	"errors"
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch indicates arithmetic between two different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrUnknownCurrency indicates a currency code missing from the ISO table.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Money is an exact decimal amount in a single currency.
// The zero value is 0 with an empty currency code.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New returns a Money from a decimal amount and a currency code.
func New(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{currency: currency}
}

// FromMinorUnits builds a Money from integer minor units (e.g. cents),
// using the currency's ISO fraction to place the decimal point.
func FromMinorUnits(units int64, currency string) (Money, error) {
	cur := gomoney.GetCurrency(currency)
	if cur == nil {
		return Money{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	return Money{
		amount:   decimal.New(units, -int32(cur.Fraction)),
		currency: currency,
	}, nil
}

// Parse builds a Money from a decimal string such as "12.34".
func Parse(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{amount: d, currency: currency}, nil
}

// KnownCurrency reports whether code is present in the ISO currency table.
func KnownCurrency(code string) bool {
	return gomoney.GetCurrency(code) != nil
}

// Amount returns the exact decimal value.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() string { return m.currency }

// MinorUnits returns the amount in integer minor units, rounded half-up to
// the currency's ISO fraction.
func (m Money) MinorUnits() int64 {
	frac := int32(2)
	if cur := gomoney.GetCurrency(m.currency); cur != nil {
		frac = int32(cur.Fraction)
	}
	return m.amount.Shift(frac).Round(0).IntPart()
}

// Round returns a copy rounded half-up to the currency's ISO fraction.
func (m Money) Round() Money {
	frac := int32(2)
	if cur := gomoney.GetCurrency(m.currency); cur != nil {
		frac = int32(cur.Fraction)
	}
	return Money{amount: m.amount.Round(frac), currency: m.currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative reports whether the amount is strictly negative.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Neg returns the negated amount.
func (m Money) Neg() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }

// Abs returns the absolute amount.
func (m Money) Abs() Money { return Money{amount: m.amount.Abs(), currency: m.currency} }

// Equal reports whether both amount and currency match.
func (m Money) Equal(n Money) bool {
	return m.currency == n.currency && m.amount.Equal(n.amount)
}

// Add returns m+n. The currencies must match.
func (m Money) Add(n Money) (Money, error) {
	if err := m.sameCurrency(n); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(n.amount), currency: m.currency}, nil
}

// Sub returns m-n. The currencies must match.
func (m Money) Sub(n Money) (Money, error) {
	if err := m.sameCurrency(n); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(n.amount), currency: m.currency}, nil
}

// GreaterThanOrEqual reports m >= n. The currencies must match.
func (m Money) GreaterThanOrEqual(n Money) (bool, error) {
	if err := m.sameCurrency(n); err != nil {
		return false, err
	}
	return m.amount.GreaterThanOrEqual(n.amount), nil
}

func (m Money) sameCurrency(n Money) error {
	if m.currency != n.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, n.currency)
	}
	return nil
}

// String formats the amount with its currency code, e.g. "12.34 USD".
func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}
