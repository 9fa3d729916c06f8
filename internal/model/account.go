package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType identifies the balance policy an account follows.
type AccountType string

const (
	// AccountTypePayment is a regular spending account (checking, cash, wallet).
	AccountTypePayment AccountType = "payment"
	// AccountTypeSaving holds funds that can receive transfers but is not a
	// valid expense target.
	AccountTypeSaving AccountType = "saving"
	// AccountTypeCreditCard stores utilization as a negative balance bounded
	// by the credit limit.
	AccountTypeCreditCard AccountType = "credit_card"
	// AccountTypeDebt tracks money owed; its balance runs negative.
	AccountTypeDebt AccountType = "debt"
	// AccountTypeLending tracks money lent out; its balance runs negative.
	AccountTypeLending AccountType = "lending"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypePayment, AccountTypeSaving, AccountTypeCreditCard,
		AccountTypeDebt, AccountTypeLending:
		return true
	}
	return false
}

// Account is a ledger account owned by a single user. Balance is mutated
// exclusively through the store's ApplyDelta; a parent account's displayed
// balance is aggregated from its children at read time and never stored.
type Account struct {
	CreatedAt   time.Time
	ID          string
	OwnerID     string
	Name        string
	Currency    string
	ParentID    *string
	CreditLimit *decimal.Decimal
	Balance     decimal.Decimal
	Type        AccountType
}

// IsCredit reports whether the account stores negative-direction utilization.
func (a *Account) IsCredit() bool {
	return a.Type == AccountTypeCreditCard
}

// BalanceOK reports whether the given balance satisfies the invariant for
// the account's type. Payment and saving accounts must not go negative;
// credit cards must keep |balance| within the credit limit; debt and lending
// balances are intentionally unbounded below.
func (a *Account) BalanceOK(balance decimal.Decimal) bool {
	switch a.Type {
	case AccountTypePayment, AccountTypeSaving:
		return !balance.IsNegative()
	case AccountTypeCreditCard:
		if a.CreditLimit == nil {
			return false
		}
		return balance.Abs().LessThanOrEqual(*a.CreditLimit)
	case AccountTypeDebt, AccountTypeLending:
		return true
	}
	return false
}

// CreditHeadroom returns the remaining spendable amount on a credit card.
// Returns zero for non-credit accounts or when no limit is configured.
func (a *Account) CreditHeadroom() decimal.Decimal {
	if !a.IsCredit() || a.CreditLimit == nil {
		return decimal.Zero
	}
	return a.CreditLimit.Sub(a.Balance.Abs())
}
