package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmhayes/tally/internal/model"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage per-fiscal-year budgets",
	}

	cmd.AddCommand(addBudgetCmd())
	cmd.AddCommand(listBudgetsCmd())
	cmd.AddCommand(deleteBudgetCmd())

	return cmd
}

func addBudgetCmd() *cobra.Command {
	var (
		fiscalYear  int
		currency    string
		expense     string
		income      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a budget for a fiscal year",
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

			estExpense, err := decimal.NewFromString(expense)
			if err != nil {
				return fmt.Errorf("invalid expense estimate %q: %w", expense, err)
			}
			estIncome, err := decimal.NewFromString(income)
			if err != nil {
				return fmt.Errorf("invalid income estimate %q: %w", income, err)
			}

			budget := &model.Budget{
				OwnerID:          owner,
				FiscalYear:       fiscalYear,
				Currency:         strings.ToUpper(currency),
				EstimatedExpense: estExpense,
				EstimatedIncome:  estIncome,
				Description:      description,
			}
			if err := store.CreateBudget(ctx, budget); err != nil {
				return err
			}
			fmt.Printf("Created budget %d for fiscal year %d\n", budget.ID, budget.FiscalYear)
			return nil
		},
	}

	cmd.Flags().IntVar(&fiscalYear, "year", 0, "fiscal year")
	cmd.Flags().StringVar(&currency, "currency", "USD", "budget currency")
	cmd.Flags().StringVar(&expense, "expense", "0", "estimated total expense")
	cmd.Flags().StringVar(&income, "income", "0", "estimated total income")
	cmd.Flags().StringVar(&description, "description", "", "budget description")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func listBudgetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets",
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

			budgets, err := store.ListBudgets(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}
			if len(budgets) == 0 {
				fmt.Println("No budgets found. Use 'tally budgets add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "ID\tYear\tCurrency\tEst. Expense\tEst. Income\tDescription")
			for _, b := range budgets {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
					b.ID, b.FiscalYear, b.Currency,
					b.EstimatedExpense.String(), b.EstimatedIncome.String(), b.Description)
			}
			return nil
		},
	}
}

func deleteBudgetCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <budget-id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !confirmed {
				return fmt.Errorf("deleting a budget drops its estimates; actuals remain " +
					"derived from posted transactions. Re-run with --yes to confirm")
			}

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid budget ID %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteBudget(ctx, id); err != nil {
				return err
			}
			fmt.Println("Budget deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm deletion")
	return cmd
}
