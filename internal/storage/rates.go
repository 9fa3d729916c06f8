package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/money"
)

// SaveRate inserts an exchange-rate snapshot. A snapshot for the same pair
// and effective time replaces nothing; it is rejected as a duplicate.
func (s *SQLiteStorage) SaveRate(ctx context.Context, rate money.Rate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.saveRateTx(ctx, s.db, rate)
}

func (s *SQLiteStorage) saveRateTx(ctx context.Context, q queryable, rate money.Rate) error {
	if err := validateRate(rate); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO exchange_rates (base, quote, rate, effective_at)
		VALUES (?, ?, ?, ?)`,
		rate.Base, rate.Quote, rate.Rate.String(), rate.EffectiveAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rate %s/%s at %s", common.ErrDuplicateEntry,
				rate.Base, rate.Quote, rate.EffectiveAt.Format(time.RFC3339))
		}
		return translateErr(fmt.Errorf("failed to insert rate: %w", err))
	}
	return nil
}

// RateAsOf returns the snapshot for base/quote effective at or before asOf,
// or nil when none exists. Implements money.RateSource.
func (s *SQLiteStorage) RateAsOf(ctx context.Context, base, quote string, asOf time.Time) (*money.Rate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.rateAsOfTx(ctx, s.db, base, quote, asOf)
}

func (s *SQLiteStorage) rateAsOfTx(ctx context.Context, q queryable, base, quote string, asOf time.Time) (*money.Rate, error) {
	row := q.QueryRowContext(ctx, `
		SELECT base, quote, rate, effective_at
		FROM exchange_rates
		WHERE base = ? AND quote = ? AND effective_at <= ?
		ORDER BY effective_at DESC
		LIMIT 1`,
		base, quote, asOf)

	var (
		rate    money.Rate
		rateStr string
	)
	err := row.Scan(&rate.Base, &rate.Quote, &rateStr, &rate.EffectiveAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rate: %w", err)
	}

	if rate.Rate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, fmt.Errorf("corrupt rate %q: %w", rateStr, err)
	}
	return &rate, nil
}
