package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// Hierarchy computes read-time aggregated balances over parent/child
// account trees. Nothing here writes: a parent's stored balance only ever
// reflects its own ledger entries.
type Hierarchy struct {
	storage   service.Storage
	converter money.Converter
}

// NewHierarchy creates a hierarchy reader with its injected dependencies.
func NewHierarchy(storage service.Storage, converter money.Converter) *Hierarchy {
	return &Hierarchy{storage: storage, converter: converter}
}

// EffectiveBalance returns an account's balance plus the effective balance
// of every descendant, converted into the account's currency using the
// snapshot effective at asOf. Parent chains are acyclic by construction
// (the store rejects cycles on create and reparent); the walk still guards
// against a corrupted hierarchy rather than recursing forever.
func (h *Hierarchy) EffectiveBalance(ctx context.Context, accountID string, asOf time.Time) (money.Money, error) {
	account, err := h.storage.GetAccount(ctx, accountID)
	if err != nil {
		return money.Money{}, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return money.Money{}, E(KindValidation, ReasonAccountNotFound, accountID)
	}
	visited := make(map[string]bool)
	return h.walk(ctx, account, asOf, visited)
}

func (h *Hierarchy) walk(ctx context.Context, account *model.Account, asOf time.Time, visited map[string]bool) (money.Money, error) {
	if visited[account.ID] {
		return money.Money{}, E(KindConfiguration, ReasonCyclicHierarchy, account.ID)
	}
	visited[account.ID] = true

	total := money.New(account.Balance, account.Currency)

	children, err := h.storage.GetChildren(ctx, account.ID)
	if err != nil {
		return money.Money{}, fmt.Errorf("failed to load children of %s: %w", account.ID, err)
	}
	for i := range children {
		child := &children[i]
		sub, err := h.walk(ctx, child, asOf, visited)
		if err != nil {
			return money.Money{}, err
		}
		converted, err := h.converter.Convert(ctx, sub, account.Currency, asOf)
		if err != nil {
			return money.Money{}, Wrap(KindConversion, ReasonNoRateAvailable, child.ID, err)
		}
		total, err = total.Add(converted)
		if err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// OwnerBalance sums the effective balances of an owner's top-level accounts
// into the given currency. This is the balance figure the tier evaluator
// matches against.
func (h *Hierarchy) OwnerBalance(ctx context.Context, ownerID, currency string, asOf time.Time) (money.Money, error) {
	tops, err := h.storage.TopLevelAccounts(ctx, ownerID)
	if err != nil {
		return money.Money{}, fmt.Errorf("failed to load top-level accounts: %w", err)
	}

	total := money.Zero(currency)
	for i := range tops {
		eff, err := h.EffectiveBalance(ctx, tops[i].ID, asOf)
		if err != nil {
			return money.Money{}, err
		}
		converted, err := h.converter.Convert(ctx, eff, currency, asOf)
		if err != nil {
			return money.Money{}, Wrap(KindConversion, ReasonNoRateAvailable, tops[i].ID, err)
		}
		total, err = total.Add(converted)
		if err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}
