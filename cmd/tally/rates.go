package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/money"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage exchange-rate snapshots",
	}

	cmd.AddCommand(addRateCmd())
	cmd.AddCommand(importRatesCmd())

	return cmd
}

func addRateCmd() *cobra.Command {
	var (
		base        string
		quote       string
		rate        string
		effectiveAt string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a single exchange-rate snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			r, err := parseRate(base, quote, rate, effectiveAt)
			if err != nil {
				return err
			}
			if err := store.SaveRate(ctx, r); err != nil {
				return err
			}
			fmt.Printf("Recorded %s/%s = %s effective %s\n",
				r.Base, r.Quote, r.Rate, r.EffectiveAt.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "base currency")
	cmd.Flags().StringVar(&quote, "quote", "", "quote currency")
	cmd.Flags().StringVar(&rate, "rate", "", "units of quote per unit of base")
	cmd.Flags().StringVar(&effectiveAt, "effective", "", "effective date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("quote")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}

func importRatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <rates.csv>",
		Short: "Import exchange-rate snapshots from a CSV file",
		Long: `Import snapshots from a CSV with columns: base, quote, rate, date
(YYYY-MM-DD). Duplicate snapshots for the same pair and date are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			reader := csv.NewReader(f)
			records, err := reader.ReadAll()
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no rows in %s", args[0])
			}
			// Skip a header row if present
			if strings.EqualFold(records[0][0], "base") {
				records = records[1:]
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			bar := progressbar.NewOptions(len(records),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Importing rates..."),
			)

			imported, skipped := 0, 0
			for _, record := range records {
				if len(record) < 4 {
					return fmt.Errorf("malformed row %v: want base,quote,rate,date", record)
				}
				r, parseErr := parseRate(record[0], record[1], record[2], record[3])
				if parseErr != nil {
					return parseErr
				}
				if saveErr := store.SaveRate(ctx, r); saveErr != nil {
					if errors.Is(saveErr, common.ErrDuplicateEntry) {
						skipped++
						_ = bar.Add(1)
						continue
					}
					return saveErr
				}
				imported++
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Fprintf(os.Stderr, "\nImported %d snapshots (%d duplicates skipped)\n", imported, skipped)
			return nil
		},
	}
}

func parseRate(base, quote, rate, effective string) (money.Rate, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return money.Rate{}, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	at := time.Now().UTC()
	if strings.TrimSpace(effective) != "" {
		at, err = time.Parse("2006-01-02", strings.TrimSpace(effective))
		if err != nil {
			return money.Rate{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", effective, err)
		}
	}
	return money.Rate{
		Base:        strings.ToUpper(strings.TrimSpace(base)),
		Quote:       strings.ToUpper(strings.TrimSpace(quote)),
		Rate:        value,
		EffectiveAt: at,
	}, nil
}
