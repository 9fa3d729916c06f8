package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// SaveTransaction persists a posted ledger entry. Both the original amount
// and the converted (account-currency) amount are stored; the conversion is
// never redone from a later rate.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.saveTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) saveTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			id, owner_id, account_id, category_id, type,
			amount, currency, converted_amount, account_currency,
			occurred_at, fiscal_year, status, posted_at, reversed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.OwnerID, txn.AccountID, txn.CategoryID, string(txn.Type),
		txn.Amount.Amount().String(), txn.Amount.Currency(),
		txn.ConvertedAmount.Amount().String(), txn.ConvertedAmount.Currency(),
		txn.OccurredAt, txn.FiscalYear, string(txn.Status), txn.PostedAt, txn.ReversedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
		}
		return translateErr(fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err))
	}
	return nil
}

const transactionColumns = `id, owner_id, account_id, category_id, type,
	amount, currency, converted_amount, account_currency,
	occurred_at, fiscal_year, status, posted_at, reversed_at`

// GetTransaction returns a transaction by id, or nil when it does not exist.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTransactionTx(ctx context.Context, q queryable, id string) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

func scanTransaction(scan func(...any) error) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		typ        string
		status     string
		amount     string
		currency   string
		converted  string
		accountCur string
		reversedAt sql.NullTime
	)
	err := scan(&txn.ID, &txn.OwnerID, &txn.AccountID, &txn.CategoryID, &typ,
		&amount, &currency, &converted, &accountCur,
		&txn.OccurredAt, &txn.FiscalYear, &status, &txn.PostedAt, &reversedAt)
	if err != nil {
		return nil, err
	}

	txn.Type = model.TransactionType(typ)
	txn.Status = model.TransactionStatus(status)

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	txn.Amount = money.New(amt, currency)

	conv, err := decimal.NewFromString(converted)
	if err != nil {
		return nil, fmt.Errorf("corrupt converted amount %q: %w", converted, err)
	}
	txn.ConvertedAmount = money.New(conv, accountCur)

	if reversedAt.Valid {
		t := reversedAt.Time
		txn.ReversedAt = &t
	}
	return &txn, nil
}

// MarkReversed flips a posted transaction to reversed. The row is kept for
// audit; aggregations skip it from then on.
func (s *SQLiteStorage) MarkReversed(ctx context.Context, id string, reversedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.markReversedTx(ctx, s.db, id, reversedAt)
}

func (s *SQLiteStorage) markReversedTx(ctx context.Context, q queryable, id string, reversedAt time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE transactions SET status = ?, reversed_at = ?
		WHERE id = ? AND status = ?`,
		string(model.StatusReversed), reversedAt, id, string(model.StatusPosted),
	)
	if err != nil {
		return translateErr(fmt.Errorf("failed to mark transaction reversed: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: posted transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// ListTransactions returns transactions matching the filter, oldest first.
// A zero AsOf places no upper bound on occurred_at.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listTransactionsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) listTransactionsTx(ctx context.Context, q queryable, filter service.TransactionFilter) ([]model.Transaction, error) {
	conditions := []string{"1=1"}
	var args []any

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.FiscalYear != 0 {
		conditions = append(conditions, "fiscal_year = ?")
		args = append(args, filter.FiscalYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.AsOf.IsZero() {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, filter.AsOf)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY occurred_at, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}
