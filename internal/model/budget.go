package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget holds a user's estimates for one fiscal year. At most one budget
// exists per owner and fiscal year. Actual figures are never stored; the
// aggregator derives them from posted transactions on every read.
type Budget struct {
	CreatedAt        time.Time
	OwnerID          string
	Currency         string
	Description      string
	EstimatedExpense decimal.Decimal
	EstimatedIncome  decimal.Decimal
	ID               int64
	FiscalYear       int
}
