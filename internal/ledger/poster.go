package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// Poster commits validated transactions to account balances. A post is
// atomic: the transaction row and the balance delta land in the same
// storage transaction or not at all. Parents are never written; their
// displayed balance is aggregated at read time, which avoids a second
// write path and the double-accounting drift a stored rollup invites.
type Poster struct {
	storage   service.Storage
	validator *Validator
	retry     service.RetryOptions
}

// NewPoster creates a poster with its injected dependencies.
func NewPoster(storage service.Storage, converter money.Converter) *Poster {
	return &Poster{
		storage:   storage,
		validator: NewValidator(storage, converter),
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
		},
	}
}

// Post validates a draft, converts its amount once, and commits the entry.
// The converted amount is persisted alongside the original and never
// recomputed from a later rate.
func (p *Poster) Post(ctx context.Context, draft Draft) (*model.Transaction, error) {
	checked, err := p.validator.Validate(ctx, draft)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &model.Transaction{
		ID:              uuid.NewString(),
		OwnerID:         draft.OwnerID,
		AccountID:       checked.Account.ID,
		CategoryID:      checked.Category.ID,
		Type:            draft.Type,
		Amount:          draft.Amount,
		ConvertedAmount: checked.Converted,
		OccurredAt:      draft.OccurredAt,
		FiscalYear:      model.FiscalYearOf(draft.OccurredAt),
		Status:          model.StatusPosted,
		PostedAt:        now,
	}

	delta := checked.Converted
	if draft.Type == model.TransactionTypeExpense {
		delta = delta.Neg()
	}

	err = common.WithRetry(ctx, func() error {
		return p.commit(ctx, txn, delta)
	}, p.retry)
	if err != nil {
		return nil, err
	}

	slog.Info("posted transaction",
		"transaction_id", txn.ID,
		"account_id", txn.AccountID,
		"type", txn.Type,
		"amount", txn.ConvertedAmount.String())
	return txn, nil
}

// Reverse is the only mutation allowed after posting. It posts the exact
// negated delta and marks the original reversed; the row stays for audit
// and every aggregation skips it from then on.
func (p *Poster) Reverse(ctx context.Context, transactionID string) (*model.Transaction, error) {
	txn, err := p.storage.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return nil, E(KindValidation, ReasonTransactionNotFound, transactionID)
	}
	if txn.Status == model.StatusReversed {
		return nil, E(KindValidation, ReasonAlreadyReversed, transactionID)
	}

	delta := txn.ConvertedAmount
	if txn.Type == model.TransactionTypeIncome {
		delta = delta.Neg()
	}

	reversedAt := time.Now().UTC()
	err = common.WithRetry(ctx, func() error {
		tx, beginErr := p.storage.BeginTx(ctx)
		if beginErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", beginErr)
		}
		defer func() { _ = tx.Rollback() }()

		if _, applyErr := tx.ApplyDelta(ctx, txn.AccountID, delta); applyErr != nil {
			return applyErr
		}
		if markErr := tx.MarkReversed(ctx, txn.ID, reversedAt); markErr != nil {
			return markErr
		}
		return tx.Commit()
	}, p.retry)
	if err != nil {
		return nil, err
	}

	txn.Status = model.StatusReversed
	txn.ReversedAt = &reversedAt

	slog.Info("reversed transaction",
		"transaction_id", txn.ID,
		"account_id", txn.AccountID,
		"amount", txn.ConvertedAmount.String())
	return txn, nil
}

// commit writes the transaction row and applies the balance delta in one
// storage transaction. On any failure nothing is persisted.
func (p *Poster) commit(ctx context.Context, txn *model.Transaction, delta money.Money) error {
	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.SaveTransaction(ctx, txn); err != nil {
		return err
	}
	if _, err := tx.ApplyDelta(ctx, txn.AccountID, delta); err != nil {
		return err
	}
	return tx.Commit()
}
