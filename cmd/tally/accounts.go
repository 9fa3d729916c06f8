package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmhayes/tally/internal/ledger"
	"github.com/jmhayes/tally/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage ledger accounts",
		Long:  `Create and inspect accounts, including parent/child hierarchies and aggregated balances.`,
	}

	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(accountBalanceCmd())
	cmd.AddCommand(reparentAccountCmd())

	return cmd
}

func addAccountCmd() *cobra.Command {
	var (
		accountType string
		currency    string
		creditLimit string
		parentID    string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			account := &model.Account{
				OwnerID:  owner,
				Name:     args[0],
				Type:     model.AccountType(accountType),
				Currency: strings.ToUpper(currency),
			}
			if creditLimit != "" {
				limit, limErr := decimal.NewFromString(creditLimit)
				if limErr != nil {
					return fmt.Errorf("invalid credit limit %q: %w", creditLimit, limErr)
				}
				account.CreditLimit = &limit
			}
			if parentID != "" {
				account.ParentID = &parentID
			}

			if err := store.CreateAccount(ctx, account); err != nil {
				return err
			}
			fmt.Printf("Created account %s (%s, %s)\n", account.ID, account.Type, account.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "payment", "account type (payment, saving, credit_card, debt, lending)")
	cmd.Flags().StringVar(&currency, "currency", "USD", "account currency")
	cmd.Flags().StringVar(&creditLimit, "credit-limit", "", "credit limit (credit_card only)")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent account ID")
	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
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

			accounts, err := store.ListAccounts(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			if len(accounts) == 0 {
				fmt.Println("No accounts found. Use 'tally accounts add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "ID\tName\tType\tCurrency\tBalance\tParent")
			for _, a := range accounts {
				parent := "-"
				if a.ParentID != nil {
					parent = *a.ParentID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.Name, a.Type, a.Currency, a.Balance.String(), parent)
			}
			return nil
		},
	}
}

func accountBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account's effective balance including all children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			hierarchy := ledger.NewHierarchy(store, newConverter(store))
			effective, err := hierarchy.EffectiveBalance(ctx, args[0], time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("Effective balance: %s\n", effective)
			return nil
		},
	}
}

func reparentAccountCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "reparent <account-id>",
		Short: "Move an account under a new parent (or to the top level)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var newParent *string
			if parentID != "" {
				newParent = &parentID
			}
			if err := store.ReparentAccount(ctx, args[0], newParent); err != nil {
				return err
			}
			fmt.Println("Account reparented.")
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "new parent account ID (empty for top level)")
	return cmd
}
