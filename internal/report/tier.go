package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
	"github.com/jmhayes/tally/internal/service"
)

// Assignment is the result of a tier evaluation. Matched is false when the
// figures fall outside every configured range, which is a valid outcome,
// not an error.
type Assignment struct {
	EvaluatedAt time.Time
	OwnerID     string
	Tier        *model.Tier
	Spent       money.Money
	Balance     money.Money
	Matched     bool
}

// Evaluator assigns membership tiers from aggregated spend and balance.
// The external cron/notification collaborator calls Evaluate periodically
// and owns any resulting delivery; the evaluator knows nothing about
// channels.
type Evaluator struct {
	storage    service.Storage
	aggregator *Aggregator
	hierarchy  *ledger.Hierarchy
	currency   string
}

// NewEvaluator creates an evaluator. All tier thresholds are interpreted in
// the given currency.
func NewEvaluator(storage service.Storage, converter money.Converter, currency string) *Evaluator {
	return &Evaluator{
		storage:    storage,
		aggregator: NewAggregator(storage, converter),
		hierarchy:  ledger.NewHierarchy(storage, converter),
		currency:   currency,
	}
}

// Evaluate computes the owner's aggregated spend for the fiscal year of
// asOf and the total effective balance across top-level accounts, then
// scans the configured tiers for double-range containment. An overlapping
// configuration fails closed rather than picking a tier arbitrarily.
func (e *Evaluator) Evaluate(ctx context.Context, ownerID string, asOf time.Time) (*Assignment, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	tiers, err := e.storage.ListTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiers: %w", err)
	}
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}

	// Spend rollup and balance aggregation are independent reads.
	var (
		spent   money.Money
		balance money.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view, rollupErr := e.aggregator.Rollup(gctx, ownerID, model.FiscalYearOf(asOf), e.currency, asOf)
		if rollupErr != nil {
			return rollupErr
		}
		spent = view.ActualExpense
		return nil
	})
	g.Go(func() error {
		var balErr error
		balance, balErr = e.hierarchy.OwnerBalance(gctx, ownerID, e.currency, asOf)
		return balErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assignment := &Assignment{
		OwnerID:     ownerID,
		Spent:       spent,
		Balance:     balance,
		EvaluatedAt: asOf,
	}
	for i := range tiers {
		if tiers[i].Contains(spent.Amount(), balance.Amount()) {
			assignment.Tier = &tiers[i]
			assignment.Matched = true
			break
		}
	}

	slog.Info("evaluated membership tier",
		"owner_id", ownerID,
		"spent", spent.String(),
		"balance", balance.String(),
		"matched", assignment.Matched)
	return assignment, nil
}

// ValidateTiers rejects configurations whose spend or balance ranges
// overlap. Overlap makes evaluation ambiguous; it is refused where the
// configuration is written and re-checked at every evaluation.
func ValidateTiers(tiers []model.Tier) error {
	if err := validateRanges(tiers, func(t *model.Tier) (decimal.Decimal, decimal.Decimal) {
		return t.SpentMin, t.SpentMax
	}); err != nil {
		return err
	}
	return validateRanges(tiers, func(t *model.Tier) (decimal.Decimal, decimal.Decimal) {
		return t.BalanceMin, t.BalanceMax
	})
}

func validateRanges(tiers []model.Tier, bounds func(*model.Tier) (decimal.Decimal, decimal.Decimal)) error {
	sorted := make([]model.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		mi, _ := bounds(&sorted[i])
		mj, _ := bounds(&sorted[j])
		return mi.LessThan(mj)
	})

	for i := range sorted {
		min, max := bounds(&sorted[i])
		if max.LessThan(min) {
			return ledger.E(ledger.KindConfiguration, ledger.ReasonAmbiguousTierConfiguration,
				strconv.FormatInt(sorted[i].ID, 10))
		}
		if i == 0 {
			continue
		}
		// Ranges are inclusive on both ends, so a shared boundary is
		// already an overlap.
		_, prevMax := bounds(&sorted[i-1])
		if min.LessThanOrEqual(prevMax) {
			return ledger.E(ledger.KindConfiguration, ledger.ReasonAmbiguousTierConfiguration,
				strconv.FormatInt(sorted[i].ID, 10))
		}
	}
	return nil
}
