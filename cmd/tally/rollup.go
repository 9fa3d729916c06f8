package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmhayes/tally/internal/config"
	"github.com/jmhayes/tally/internal/report"
)

func rollupCmd() *cobra.Command {
	var (
		fiscalYear int
		currency   string
		asOf       string
	)

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Roll posted transactions up into budget actuals",
		Long: `Scan the owner's posted transactions for a fiscal year and derive
actual expense and income, compared against the stored estimates. The
rollup is recomputed from transactions every time; reversals and
backfills need no repair step.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			owner, err := requireOwner()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cutoff := time.Time{}
			if asOf != "" {
				cutoff, err = time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", asOf, err)
				}
			}
			if fiscalYear == 0 {
				fiscalYear = time.Now().Year()
			}
			display := strings.ToUpper(currency)
			if display == "" {
				display = config.BaseCurrency()
			}

			aggregator := report.NewAggregator(store, newConverter(store))
			view, err := aggregator.Rollup(ctx, owner, fiscalYear, display, cutoff)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "Fiscal year\t%d\n", view.FiscalYear)
			fmt.Fprintf(w, "Actual expense\t%s\n", view.ActualExpense)
			fmt.Fprintf(w, "Actual income\t%s\n", view.ActualIncome)
			fmt.Fprintf(w, "Top budget (estimate)\t%s\n", view.TopBudget)
			fmt.Fprintf(w, "Bot budget (floor)\t%s\n", view.BotBudget)
			fmt.Fprintf(w, "Act budget (live)\t%s\n", view.ActBudget)
			if len(view.ByCategory) > 0 {
				fmt.Fprintln(w, "\nCategory\tType\tTotal")
				for _, ct := range view.ByCategory {
					fmt.Fprintf(w, "%d\t%s\t%s\n", ct.CategoryID, ct.Type, ct.Total)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&fiscalYear, "year", 0, "fiscal year (default current)")
	cmd.Flags().StringVar(&currency, "currency", "", "display currency (default base currency)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "point-in-time cutoff YYYY-MM-DD")
	return cmd
}
