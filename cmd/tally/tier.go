package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmhayes/tally/internal/config"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/report"
)

func tierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Evaluate and configure membership tiers",
	}

	cmd.AddCommand(evaluateTierCmd())
	cmd.AddCommand(setTiersCmd())
	cmd.AddCommand(listTiersCmd())

	return cmd
}

func evaluateTierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the owner's current membership tier",
		Long: `Match the owner's aggregated spend and total effective balance
against the configured tier ranges. An overlapping configuration fails
closed instead of picking a tier arbitrarily.`,
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

			evaluator := report.NewEvaluator(store, newConverter(store), config.BaseCurrency())
			assignment, err := evaluator.Evaluate(ctx, owner, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Printf("Spent: %s\nBalance: %s\n", assignment.Spent, assignment.Balance)
			if !assignment.Matched {
				fmt.Println("No tier matches the current figures.")
				return nil
			}
			fmt.Printf("Tier: %s\n", assignment.Tier.Name)
			for _, benefit := range assignment.Tier.Benefits {
				fmt.Printf("  - %s\n", benefit)
			}
			return nil
		},
	}
}

// tierFileEntry is the JSON shape accepted by 'tally tier set'.
type tierFileEntry struct {
	Name       string   `json:"name"`
	SpentMin   string   `json:"spentMin"`
	SpentMax   string   `json:"spentMax"`
	BalanceMin string   `json:"balanceMin"`
	BalanceMax string   `json:"balanceMax"`
	Benefits   []string `json:"benefits"`
}

func setTiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <tiers.json>",
		Short: "Replace the tier configuration from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var entries []tierFileEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			tiers := make([]model.Tier, 0, len(entries))
			for _, e := range entries {
				tier := model.Tier{Name: e.Name, Benefits: e.Benefits}
				if tier.SpentMin, err = decimal.NewFromString(e.SpentMin); err != nil {
					return fmt.Errorf("tier %q: invalid spentMin: %w", e.Name, err)
				}
				if tier.SpentMax, err = decimal.NewFromString(e.SpentMax); err != nil {
					return fmt.Errorf("tier %q: invalid spentMax: %w", e.Name, err)
				}
				if tier.BalanceMin, err = decimal.NewFromString(e.BalanceMin); err != nil {
					return fmt.Errorf("tier %q: invalid balanceMin: %w", e.Name, err)
				}
				if tier.BalanceMax, err = decimal.NewFromString(e.BalanceMax); err != nil {
					return fmt.Errorf("tier %q: invalid balanceMax: %w", e.Name, err)
				}
				tiers = append(tiers, tier)
			}

			// Reject overlapping ranges before they ever reach storage.
			if err := report.ValidateTiers(tiers); err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ReplaceTiers(ctx, tiers); err != nil {
				return err
			}
			fmt.Printf("Configured %d tiers.\n", len(tiers))
			return nil
		},
	}
}

func listTiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tiers, err := store.ListTiers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list tiers: %w", err)
			}
			for _, t := range tiers {
				fmt.Printf("%s: spent [%s, %s], balance [%s, %s]\n",
					t.Name, t.SpentMin, t.SpentMax, t.BalanceMin, t.BalanceMax)
			}
			return nil
		},
	}
}
