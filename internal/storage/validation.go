package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidBudget      = errors.New("invalid budget")
	ErrInvalidRate        = errors.New("invalid exchange rate")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAccount validates an account before insert.
func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if strings.TrimSpace(account.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidAccount)
	}
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAccount)
	}
	if !account.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAccount, account.Type)
	}
	if !money.KnownCurrency(account.Currency) {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidAccount, account.Currency)
	}
	if account.Type == model.AccountTypeCreditCard {
		if account.CreditLimit == nil || !account.CreditLimit.IsPositive() {
			return fmt.Errorf("%w: credit card requires a positive credit limit", ErrInvalidAccount)
		}
	} else if account.CreditLimit != nil {
		return fmt.Errorf("%w: credit limit only applies to credit cards", ErrInvalidAccount)
	}
	return nil
}

// validateCategory validates a category before insert.
func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(category.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidCategory)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if !category.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, category.Type)
	}
	return nil
}

// validateTransaction validates a transaction before insert.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.OwnerID == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidTransaction)
	}
	if txn.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, txn.Type)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if txn.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

// validateBudget validates a budget before insert.
func validateBudget(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if strings.TrimSpace(budget.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidBudget)
	}
	if budget.FiscalYear <= 0 {
		return fmt.Errorf("%w: missing fiscal year", ErrInvalidBudget)
	}
	if !money.KnownCurrency(budget.Currency) {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidBudget, budget.Currency)
	}
	if budget.EstimatedExpense.IsNegative() || budget.EstimatedIncome.IsNegative() {
		return fmt.Errorf("%w: estimates cannot be negative", ErrInvalidBudget)
	}
	return nil
}

// validateRate validates an exchange-rate snapshot before insert.
func validateRate(rate money.Rate) error {
	if !money.KnownCurrency(rate.Base) {
		return fmt.Errorf("%w: unknown base currency %q", ErrInvalidRate, rate.Base)
	}
	if !money.KnownCurrency(rate.Quote) {
		return fmt.Errorf("%w: unknown quote currency %q", ErrInvalidRate, rate.Quote)
	}
	if rate.Base == rate.Quote {
		return fmt.Errorf("%w: base and quote are the same", ErrInvalidRate)
	}
	if !rate.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidRate)
	}
	if rate.EffectiveAt.IsZero() {
		return fmt.Errorf("%w: missing effective time", ErrInvalidRate)
	}
	return nil
}
