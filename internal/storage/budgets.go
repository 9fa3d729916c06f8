package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
)

// CreateBudget inserts a budget. At most one budget may exist per owner and
// fiscal year; a duplicate is rejected at this boundary rather than
// discovered later by the aggregator.
func (s *SQLiteStorage) CreateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createBudgetTx(ctx, s.db, budget)
}

func (s *SQLiteStorage) createBudgetTx(ctx context.Context, q queryable, budget *model.Budget) error {
	if err := validateBudget(budget); err != nil {
		return err
	}
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = time.Now().UTC()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO budgets (owner_id, fiscal_year, currency, estimated_expense, estimated_income, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		budget.OwnerID, budget.FiscalYear, budget.Currency,
		budget.EstimatedExpense.String(), budget.EstimatedIncome.String(),
		budget.Description, budget.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.Wrap(ledger.KindConfiguration, ledger.ReasonDuplicateFiscalYear,
				strconv.Itoa(budget.FiscalYear), err)
		}
		return translateErr(fmt.Errorf("failed to insert budget: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get budget ID: %w", err)
	}
	budget.ID = id

	slog.Info("created budget", "owner_id", budget.OwnerID, "fiscal_year", budget.FiscalYear)
	return nil
}

const budgetColumns = `id, owner_id, fiscal_year, currency, estimated_expense, estimated_income, description, created_at`

// GetBudget returns the budget for an owner and fiscal year, or nil when
// none exists.
func (s *SQLiteStorage) GetBudget(ctx context.Context, ownerID string, fiscalYear int) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.getBudgetTx(ctx, s.db, ownerID, fiscalYear)
}

func (s *SQLiteStorage) getBudgetTx(ctx context.Context, q queryable, ownerID string, fiscalYear int) (*model.Budget, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? AND fiscal_year = ?`,
		ownerID, fiscalYear)
	budget, err := scanBudget(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query budget: %w", err)
	}
	return budget, nil
}

func scanBudget(scan func(...any) error) (*model.Budget, error) {
	var (
		budget      model.Budget
		expense     string
		income      string
		description sql.NullString
	)
	err := scan(&budget.ID, &budget.OwnerID, &budget.FiscalYear, &budget.Currency,
		&expense, &income, &description, &budget.CreatedAt)
	if err != nil {
		return nil, err
	}

	budget.EstimatedExpense, err = decimal.NewFromString(expense)
	if err != nil {
		return nil, fmt.Errorf("corrupt estimated expense %q: %w", expense, err)
	}
	budget.EstimatedIncome, err = decimal.NewFromString(income)
	if err != nil {
		return nil, fmt.Errorf("corrupt estimated income %q: %w", income, err)
	}
	budget.Description = description.String
	return &budget, nil
}

// ListBudgets returns all budgets for an owner, newest fiscal year first.
func (s *SQLiteStorage) ListBudgets(ctx context.Context, ownerID string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.listBudgetsTx(ctx, s.db, ownerID)
}

func (s *SQLiteStorage) listBudgetsTx(ctx context.Context, q queryable, ownerID string) ([]model.Budget, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY fiscal_year DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, scanErr := scanBudget(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", scanErr)
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return budgets, nil
}

// DeleteBudget removes a budget by id. Actuals are derived from posted
// transactions, so deleting a budget only drops the estimates.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteBudgetTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteBudgetTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return translateErr(fmt.Errorf("failed to delete budget: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: budget %d", common.ErrNotFound, id)
	}
	return nil
}
