package model

import "github.com/shopspring/decimal"

// Tier is a membership classification matched against a user's aggregated
// spend and balance. A user belongs to the tier whose spent range and
// balance range both contain the user's figures; tier configuration must
// keep the ranges non-overlapping.
type Tier struct {
	Name       string
	Benefits   []string
	SpentMin   decimal.Decimal
	SpentMax   decimal.Decimal
	BalanceMin decimal.Decimal
	BalanceMax decimal.Decimal
	ID         int64
}

// Contains reports whether the given spend and balance both fall inside the
// tier's ranges (inclusive bounds).
func (t *Tier) Contains(spent, balance decimal.Decimal) bool {
	return spent.GreaterThanOrEqual(t.SpentMin) && spent.LessThanOrEqual(t.SpentMax) &&
		balance.GreaterThanOrEqual(t.BalanceMin) && balance.LessThanOrEqual(t.BalanceMax)
}
