package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

// CreateAccount inserts a new account. A requested parent is checked for
// existence, same ownership, and an acyclic ancestor chain before commit.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.createAccountTx(ctx, tx, account); err != nil {
		return err
	}
	return translateErr(tx.Commit())
}

func (s *SQLiteStorage) createAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	if account.ParentID != nil {
		if err := s.checkParentChain(ctx, q, account.ID, *account.ParentID, account.OwnerID); err != nil {
			return err
		}
	}

	var limit any
	if account.CreditLimit != nil {
		limit = account.CreditLimit.String()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, type, currency, balance, credit_limit, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.OwnerID, account.Name, string(account.Type),
		account.Currency, account.Balance.String(), limit, account.ParentID, account.CreatedAt,
	)
	if err != nil {
		return translateErr(fmt.Errorf("failed to insert account: %w", err))
	}

	slog.Info("created account", "account_id", account.ID, "type", account.Type, "currency", account.Currency)
	return nil
}

// checkParentChain verifies the proposed parent exists, belongs to the same
// owner, and that walking its ancestors never reaches accountID. Walking on
// every create and reparent keeps parent chains acyclic so read-time
// aggregation can recurse safely.
func (s *SQLiteStorage) checkParentChain(ctx context.Context, q queryable, accountID, parentID, ownerID string) error {
	current := parentID
	seen := make(map[string]bool)
	for current != "" {
		if current == accountID || seen[current] {
			return ledger.E(ledger.KindConfiguration, ledger.ReasonCyclicHierarchy, accountID)
		}
		seen[current] = true

		parent, err := s.getAccountTx(ctx, q, current)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: parent account %s", ErrInvalidAccount, current)
		}
		if parent.OwnerID != ownerID {
			return fmt.Errorf("%w: parent account %s belongs to a different owner", ErrInvalidAccount, current)
		}
		if parent.ParentID == nil {
			break
		}
		current = *parent.ParentID
	}
	return nil
}

// GetAccount returns an account by id, or nil when it does not exist.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, id)
}

const accountColumns = `id, owner_id, name, type, currency, balance, credit_limit, parent_id, created_at`

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, id string) (*model.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

func scanAccount(scan func(...any) error) (*model.Account, error) {
	var (
		account  model.Account
		typ      string
		balance  string
		limit    sql.NullString
		parentID sql.NullString
	)
	err := scan(&account.ID, &account.OwnerID, &account.Name, &typ, &account.Currency,
		&balance, &limit, &parentID, &account.CreatedAt)
	if err != nil {
		return nil, err
	}

	account.Type = model.AccountType(typ)
	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	if limit.Valid {
		l, limErr := decimal.NewFromString(limit.String)
		if limErr != nil {
			return nil, fmt.Errorf("corrupt credit limit %q: %w", limit.String, limErr)
		}
		account.CreditLimit = &l
	}
	if parentID.Valid {
		account.ParentID = &parentID.String
	}
	return &account, nil
}

func (s *SQLiteStorage) queryAccounts(ctx context.Context, q queryable, query string, args ...any) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// GetChildren returns the direct children of an account.
func (s *SQLiteStorage) GetChildren(ctx context.Context, accountID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return s.getChildrenTx(ctx, s.db, accountID)
}

func (s *SQLiteStorage) getChildrenTx(ctx context.Context, q queryable, accountID string) ([]model.Account, error) {
	return s.queryAccounts(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE parent_id = ? ORDER BY name`, accountID)
}

// ListAccounts returns all accounts for an owner.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, ownerID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.listAccountsTx(ctx, s.db, ownerID)
}

func (s *SQLiteStorage) listAccountsTx(ctx context.Context, q queryable, ownerID string) ([]model.Account, error) {
	return s.queryAccounts(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY name`, ownerID)
}

// TopLevelAccounts returns an owner's accounts that have no parent.
func (s *SQLiteStorage) TopLevelAccounts(ctx context.Context, ownerID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.topLevelAccountsTx(ctx, s.db, ownerID)
}

func (s *SQLiteStorage) topLevelAccountsTx(ctx context.Context, q queryable, ownerID string) ([]model.Account, error) {
	return s.queryAccounts(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? AND parent_id IS NULL ORDER BY name`, ownerID)
}

// ReparentAccount moves an account under a new parent (or to the top level
// when parentID is nil), re-checking the acyclic-hierarchy invariant.
func (s *SQLiteStorage) ReparentAccount(ctx context.Context, accountID string, parentID *string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.reparentAccountTx(ctx, tx, accountID, parentID); err != nil {
		return err
	}
	return translateErr(tx.Commit())
}

func (s *SQLiteStorage) reparentAccountTx(ctx context.Context, q queryable, accountID string, parentID *string) error {
	account, err := s.getAccountTx(ctx, q, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account %s", common.ErrNotFound, accountID)
	}

	if parentID != nil {
		if err := s.checkParentChain(ctx, q, accountID, *parentID, account.OwnerID); err != nil {
			return err
		}
	}

	_, err = q.ExecContext(ctx, `UPDATE accounts SET parent_id = ? WHERE id = ?`, parentID, accountID)
	if err != nil {
		return translateErr(fmt.Errorf("failed to reparent account: %w", err))
	}
	return nil
}

// ApplyDelta is the only balance mutator. It re-reads the balance inside
// the transaction, applies the signed delta, and re-validates the account
// type's invariant before committing; on violation nothing is written.
func (s *SQLiteStorage) ApplyDelta(ctx context.Context, accountID string, delta money.Money) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateErr(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	account, err := s.applyDeltaTx(ctx, tx, accountID, delta)
	if err != nil {
		return nil, err
	}
	if err := translateErr(tx.Commit()); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *SQLiteStorage) applyDeltaTx(ctx context.Context, q queryable, accountID string, delta money.Money) (*model.Account, error) {
	account, err := s.getAccountTx(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledger.E(ledger.KindValidation, ledger.ReasonAccountNotFound, accountID)
	}
	if delta.Currency() != account.Currency {
		return nil, fmt.Errorf("%w: delta in %s against %s account %s",
			money.ErrCurrencyMismatch, delta.Currency(), account.Currency, accountID)
	}

	newBalance := account.Balance.Add(delta.Amount())
	if !account.BalanceOK(newBalance) {
		return nil, ledger.E(ledger.KindInvariant, ledger.ReasonBalanceInvariantViolation, accountID)
	}

	_, err = q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`,
		newBalance.String(), accountID)
	if err != nil {
		return nil, translateErr(fmt.Errorf("failed to update balance: %w", err))
	}

	account.Balance = newBalance
	slog.Debug("applied balance delta",
		"account_id", accountID,
		"delta", delta.String(),
		"balance", newBalance.String())
	return account, nil
}
