package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jmhayes/tally/internal/model"
)

// ReplaceTiers atomically swaps the whole tier configuration. Range
// validation is the evaluator's job (report.ValidateTiers); callers are
// expected to validate before writing, and the evaluator re-checks and
// fails closed if a bad configuration slips through anyway.
func (s *SQLiteStorage) ReplaceTiers(ctx context.Context, tiers []model.Tier) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.replaceTiersTx(ctx, tx, tiers); err != nil {
		return err
	}
	return translateErr(tx.Commit())
}

func (s *SQLiteStorage) replaceTiersTx(ctx context.Context, q queryable, tiers []model.Tier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM tiers`); err != nil {
		return translateErr(fmt.Errorf("failed to clear tiers: %w", err))
	}

	for i := range tiers {
		tier := &tiers[i]
		if err := validateString(tier.Name, "tier name"); err != nil {
			return err
		}

		benefits, err := json.Marshal(tier.Benefits)
		if err != nil {
			return fmt.Errorf("failed to encode benefits for tier %q: %w", tier.Name, err)
		}

		result, err := q.ExecContext(ctx, `
			INSERT INTO tiers (name, spent_min, spent_max, balance_min, balance_max, benefits)
			VALUES (?, ?, ?, ?, ?, ?)`,
			tier.Name, tier.SpentMin.String(), tier.SpentMax.String(),
			tier.BalanceMin.String(), tier.BalanceMax.String(), string(benefits),
		)
		if err != nil {
			return translateErr(fmt.Errorf("failed to insert tier %q: %w", tier.Name, err))
		}
		if tier.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get tier ID: %w", err)
		}
	}
	return nil
}

// ListTiers returns the configured tiers ordered by ascending spend range.
func (s *SQLiteStorage) ListTiers(ctx context.Context) ([]model.Tier, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listTiersTx(ctx, s.db)
}

func (s *SQLiteStorage) listTiersTx(ctx context.Context, q queryable) ([]model.Tier, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, spent_min, spent_max, balance_min, balance_max, benefits
		FROM tiers ORDER BY CAST(spent_min AS REAL)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tiers []model.Tier
	for rows.Next() {
		var (
			tier     model.Tier
			spentMin, spentMax, balMin, balMax string
			benefits sql.NullString
		)
		if err := rows.Scan(&tier.ID, &tier.Name, &spentMin, &spentMax, &balMin, &balMax, &benefits); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}

		if tier.SpentMin, err = decimal.NewFromString(spentMin); err != nil {
			return nil, fmt.Errorf("corrupt spent_min %q: %w", spentMin, err)
		}
		if tier.SpentMax, err = decimal.NewFromString(spentMax); err != nil {
			return nil, fmt.Errorf("corrupt spent_max %q: %w", spentMax, err)
		}
		if tier.BalanceMin, err = decimal.NewFromString(balMin); err != nil {
			return nil, fmt.Errorf("corrupt balance_min %q: %w", balMin, err)
		}
		if tier.BalanceMax, err = decimal.NewFromString(balMax); err != nil {
			return nil, fmt.Errorf("corrupt balance_max %q: %w", balMax, err)
		}
		if benefits.Valid && benefits.String != "" {
			if err := json.Unmarshal([]byte(benefits.String), &tier.Benefits); err != nil {
				return nil, fmt.Errorf("corrupt benefits for tier %q: %w", tier.Name, err)
			}
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tiers: %w", err)
	}
	return tiers, nil
}
