// Package report derives reporting views from the ledger: per-fiscal-year
// budget actuals and membership tier assignments. Everything here is a
// read-only scan over posted transactions, re-computable at any time; no
// incremental counters exist to drift.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// CategoryTotal is a per-category sum within a budget view.
type CategoryTotal struct {
	CategoryID int64
	Type       model.CategoryType
	Total      money.Money
}

// BudgetView combines a fiscal year's stored estimates with actuals derived
// from posted transactions. TopBudget is the estimate ceiling, BotBudget a
// floor (the previous fiscal year's actual when one exists), and ActBudget
// the live actual; the dashboard compares the three for over/under-budget
// signaling.
type BudgetView struct {
	AsOf             time.Time
	OwnerID          string
	Currency         string
	ByCategory       []CategoryTotal
	EstimatedExpense money.Money
	EstimatedIncome  money.Money
	ActualExpense    money.Money
	ActualIncome     money.Money
	TopBudget        money.Money
	BotBudget        money.Money
	ActBudget        money.Money
	FiscalYear       int
}

// Aggregator rolls posted transactions up into budget views.
type Aggregator struct {
	storage   service.Storage
	converter money.Converter
}

// NewAggregator creates an aggregator with its injected dependencies.
func NewAggregator(storage service.Storage, converter money.Converter) *Aggregator {
	return &Aggregator{storage: storage, converter: converter}
}

// Rollup scans the owner's posted transactions for the fiscal year and sums
// them into displayCurrency. Each transaction contributes its persisted
// converted amount, reconverted from the account currency; the original
// minor-currency amount is never re-derived, so conversion error cannot
// compound. A zero asOf means "now". Reversed transactions are skipped.
func (a *Aggregator) Rollup(ctx context.Context, ownerID string, fiscalYear int, displayCurrency string, asOf time.Time) (*BudgetView, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	actualExpense, actualIncome, byCategory, err := a.sums(ctx, ownerID, fiscalYear, displayCurrency, asOf)
	if err != nil {
		return nil, err
	}

	view := &BudgetView{
		OwnerID:       ownerID,
		FiscalYear:    fiscalYear,
		Currency:      displayCurrency,
		AsOf:          asOf,
		ActualExpense: actualExpense,
		ActualIncome:  actualIncome,
		ByCategory:    byCategory,
		ActBudget:     actualExpense,
	}

	budget, err := a.storage.GetBudget(ctx, ownerID, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	if budget != nil {
		estExpense, convErr := a.converter.Convert(ctx,
			money.New(budget.EstimatedExpense, budget.Currency), displayCurrency, asOf)
		if convErr != nil {
			return nil, ledger.Wrap(ledger.KindConversion, ledger.ReasonNoRateAvailable,
				strconv.FormatInt(budget.ID, 10), convErr)
		}
		estIncome, convErr := a.converter.Convert(ctx,
			money.New(budget.EstimatedIncome, budget.Currency), displayCurrency, asOf)
		if convErr != nil {
			return nil, ledger.Wrap(ledger.KindConversion, ledger.ReasonNoRateAvailable,
				strconv.FormatInt(budget.ID, 10), convErr)
		}
		view.EstimatedExpense = estExpense
		view.EstimatedIncome = estIncome
		view.TopBudget = estExpense
	}

	floor, err := a.floor(ctx, ownerID, fiscalYear, displayCurrency, asOf)
	if err != nil {
		return nil, err
	}
	if floor.IsZero() {
		floor = view.EstimatedExpense
	}
	view.BotBudget = floor

	slog.Debug("computed budget rollup",
		"owner_id", ownerID,
		"fiscal_year", fiscalYear,
		"actual_expense", view.ActualExpense.String(),
		"actual_income", view.ActualIncome.String())
	return view, nil
}

// sums scans posted transactions and totals them by direction and category.
// Summation is order-independent; any permutation of the scan yields the
// same totals.
func (a *Aggregator) sums(ctx context.Context, ownerID string, fiscalYear int, displayCurrency string, asOf time.Time) (expense, income money.Money, byCategory []CategoryTotal, err error) {
	expense = money.Zero(displayCurrency)
	income = money.Zero(displayCurrency)

	txns, err := a.storage.ListTransactions(ctx, service.TransactionFilter{
		OwnerID:    ownerID,
		FiscalYear: fiscalYear,
		Status:     model.StatusPosted,
		AsOf:       asOf,
	})
	if err != nil {
		return expense, income, nil, fmt.Errorf("failed to scan transactions: %w", err)
	}

	perCategory := make(map[int64]*CategoryTotal)
	for i := range txns {
		// Rollups never write, so an abort mid-scan leaves nothing partial.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return expense, income, nil, ctxErr
		}

		txn := &txns[i]
		amount, convErr := a.converter.Convert(ctx, txn.ConvertedAmount, displayCurrency, asOf)
		if convErr != nil {
			return expense, income, nil, ledger.Wrap(ledger.KindConversion, ledger.ReasonNoRateAvailable, txn.ID, convErr)
		}

		switch txn.Type {
		case model.TransactionTypeExpense:
			if expense, err = expense.Add(amount); err != nil {
				return expense, income, nil, err
			}
		case model.TransactionTypeIncome:
			if income, err = income.Add(amount); err != nil {
				return expense, income, nil, err
			}
		}

		ct, ok := perCategory[txn.CategoryID]
		if !ok {
			ct = &CategoryTotal{
				CategoryID: txn.CategoryID,
				Type:       model.CategoryType(txn.Type),
				Total:      money.Zero(displayCurrency),
			}
			perCategory[txn.CategoryID] = ct
		}
		if ct.Total, err = ct.Total.Add(amount); err != nil {
			return expense, income, nil, err
		}
	}

	for _, ct := range perCategory {
		byCategory = append(byCategory, *ct)
	}
	sort.Slice(byCategory, func(i, j int) bool { return byCategory[i].CategoryID < byCategory[j].CategoryID })
	return expense, income, byCategory, nil
}

// floor returns the previous fiscal year's actual expense, the configured
// minimum used as BotBudget. Zero when the previous year has no posted
// transactions.
func (a *Aggregator) floor(ctx context.Context, ownerID string, fiscalYear int, displayCurrency string, asOf time.Time) (money.Money, error) {
	prevExpense, _, _, err := a.sums(ctx, ownerID, fiscalYear-1, displayCurrency, asOf)
	if err != nil {
		return money.Money{}, err
	}
	return prevExpense, nil
}
