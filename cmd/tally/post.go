package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
	"github.com/jmhayes/tally/internal/money"
)

func postCmd() *cobra.Command {
	var (
		accountID  string
		categoryID int64
		txnType    string
		amount     string
		currency   string
		occurredAt string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Validate and post a transaction",
		Long: `Run a transaction through the validation rules and, on success,
commit its converted amount to the account balance atomically.`,
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

			when := time.Now().UTC()
			if occurredAt != "" {
				when, err = time.Parse("2006-01-02", occurredAt)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", occurredAt, err)
				}
			}

			amt, err := money.Parse(amount, strings.ToUpper(currency))
			if err != nil {
				return err
			}

			poster := ledger.NewPoster(store, newConverter(store))
			txn, err := poster.Post(ctx, ledger.Draft{
				OwnerID:    owner,
				AccountID:  accountID,
				CategoryID: categoryID,
				Type:       model.TransactionType(txnType),
				Amount:     amt,
				OccurredAt: when,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Posted %s: %s (%s applied to account)\n", txn.ID, txn.Amount, txn.ConvertedAmount)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "target account ID")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "category ID")
	cmd.Flags().StringVar(&txnType, "type", "expense", "transaction type (income, expense)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12.34")
	cmd.Flags().StringVar(&currency, "currency", "USD", "transaction currency")
	cmd.Flags().StringVar(&occurredAt, "date", "", "occurrence date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func reverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <transaction-id>",
		Short: "Reverse a posted transaction",
		Long: `Post the exact negated delta of a transaction and mark the original
reversed. The row is kept for audit and excluded from aggregations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			poster := ledger.NewPoster(store, newConverter(store))
			txn, err := poster.Reverse(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Reversed %s (%s restored to account)\n", txn.ID, txn.ConvertedAmount)
			return nil
		},
	}
}
