package model

import "time"

// CategoryType indicates whether a category classifies income or expenses.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category labels transactions. A category's type must match the type of
// every transaction that uses it.
type Category struct {
	CreatedAt time.Time
	Name      string
	OwnerID   string
	Type      CategoryType
	ParentID  *int64
	ID        int64
	IsActive  bool
}
