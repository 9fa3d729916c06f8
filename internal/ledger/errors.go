// Package ledger implements the core posting engine: transaction
// validation, atomic balance mutation with reversal, and account-hierarchy
// reads. It depends only on the service interfaces and has no knowledge of
// HTTP codes, delivery channels, or a concrete database.
package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure for the calling layer. The engine never
// maps kinds to status codes or user-facing messages itself.
type Kind string

const (
	// KindValidation covers category/account/type mismatches; safe to retry
	// after correcting the input.
	KindValidation Kind = "validation"
	// KindInsufficientFunds covers balance and credit-limit shortfalls;
	// user-actionable, never retried automatically.
	KindInsufficientFunds Kind = "insufficient_funds"
	// KindInvariant means a post-mutation balance check failed; the
	// triggering write is rolled back, never partially applied.
	KindInvariant Kind = "invariant_violation"
	// KindConfiguration covers bad state rejected at the boundary where it
	// would be introduced: duplicate fiscal years, cyclic hierarchies,
	// ambiguous tier ranges.
	KindConfiguration Kind = "configuration"
	// KindConversion means a required exchange-rate snapshot is missing.
	KindConversion Kind = "conversion"
)

// Reason is the specific rule that failed, distinct per rule so the caller
// can localize and display it.
type Reason string

const (
	ReasonCategoryNotFound            Reason = "category_not_found"
	ReasonCategoryTypeMismatch        Reason = "category_type_mismatch"
	ReasonAccountNotFound             Reason = "account_not_found"
	ReasonInvalidAccountTypeForIncome Reason = "invalid_account_type_for_income"
	ReasonInvalidAccountTypeForExpense Reason = "invalid_account_type_for_expense"
	ReasonUnsupportedAccountType      Reason = "unsupported_account_type"
	ReasonInvalidAmount               Reason = "invalid_amount"
	ReasonInvalidTransactionType      Reason = "invalid_transaction_type"
	ReasonInsufficientBalance         Reason = "insufficient_balance"
	ReasonInsufficientCreditLimit     Reason = "insufficient_credit_limit"
	ReasonBalanceInvariantViolation   Reason = "balance_invariant_violation"
	ReasonCyclicHierarchy             Reason = "cyclic_hierarchy"
	ReasonDuplicateFiscalYear         Reason = "duplicate_fiscal_year"
	ReasonAmbiguousTierConfiguration  Reason = "ambiguous_tier_configuration"
	ReasonNoRateAvailable             Reason = "no_rate_available"
	ReasonAlreadyReversed             Reason = "already_reversed"
	ReasonTransactionNotFound         Reason = "transaction_not_found"
)

// Error is a structured engine failure carrying the kind, the specific rule
// that failed, and the id of the offending entity.
type Error struct {
	Err      error
	Kind     Kind
	Reason   Reason
	EntityID string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.EntityID != "" {
		msg += fmt.Sprintf(" (entity %s)", e.EntityID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a structured engine error.
func E(kind Kind, reason Reason, entityID string) *Error {
	return &Error{Kind: kind, Reason: reason, EntityID: entityID}
}

// Wrap builds a structured engine error around an underlying cause.
func Wrap(kind Kind, reason Reason, entityID string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, EntityID: entityID, Err: err}
}

// KindOf returns the kind of a structured engine error, or "" when err is
// not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsReason reports whether err is a structured engine error with the given
// reason.
func IsReason(err error, reason Reason) bool {
	var e *Error
	return errors.As(err, &e) && e.Reason == reason
}
