package model

import (
	"time"

	"github.com/jmhayes/tally/internal/money"
)

// TransactionType indicates the direction of a transaction.
type TransactionType string

const (
	// TransactionTypeIncome adds funds to an account.
	TransactionTypeIncome TransactionType = "income"
	// TransactionTypeExpense removes funds from an account.
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// TransactionStatus tracks a transaction's lifecycle after posting.
type TransactionStatus string

const (
	// StatusPosted means the transaction's effect is committed to the
	// account balance.
	StatusPosted TransactionStatus = "posted"
	// StatusReversed means the effect has been undone; the row is kept for
	// audit and excluded from every aggregation.
	StatusReversed TransactionStatus = "reversed"
)

// Transaction is a posted ledger entry. Amount is the original amount in the
// transaction's currency; ConvertedAmount is the amount applied to the
// account, computed once at post time from the rate snapshot in effect and
// never recomputed from a possibly-changed rate.
type Transaction struct {
	OccurredAt      time.Time
	PostedAt        time.Time
	ReversedAt      *time.Time
	ID              string
	OwnerID         string
	AccountID       string
	Status          TransactionStatus
	Type            TransactionType
	Amount          money.Money
	ConvertedAmount money.Money
	CategoryID      int64
	FiscalYear      int
}

// FiscalYearOf derives the budgeting period key from a transaction date.
func FiscalYearOf(t time.Time) int {
	return t.Year()
}
