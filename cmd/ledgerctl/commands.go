package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/db"
	"github.com/baharkarakas/prepaid-ledger/internal/scheduler"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage shop accounts",
	}

	var name, email, password, pin string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a shop account with its initial PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			a, err := e.svc.Accounts.Register(cmd.Context(), name, email, password, pin)
			if err != nil {
				return fmt.Errorf("register account: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
	create.Flags().StringVar(&name, "name", "", "shop name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "login password (min 8 characters)")
	create.Flags().StringVar(&pin, "pin", "", "4-digit PIN")
	for _, f := range []string{"name", "email", "password", "pin"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}

func customerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}

	var accountID, name, phone string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a customer under an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			c, err := e.svc.Accounts.CreateCustomer(cmd.Context(), accountID, name, phone)
			if err != nil {
				return fmt.Errorf("create customer: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	create.Flags().StringVar(&accountID, "account", "", "owning account id")
	create.Flags().StringVar(&name, "name", "", "customer name")
	create.Flags().StringVar(&phone, "phone-suffix", "", "last digits of the customer's phone")
	_ = create.MarkFlagRequired("account")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func resetPinCmd() *cobra.Command {
	var accountID, pin string
	cmd := &cobra.Command{
		Use:   "reset-pin",
		Short: "Set a new PIN and clear any lockout",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.svc.Pins.ResetPin(cmd.Context(), accountID, pin); err != nil {
				return fmt.Errorf("reset pin: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pin reset")
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id")
	cmd.Flags().StringVar(&pin, "pin", "", "new 4-digit PIN")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func reconcileCmd() *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "reconcile [customer-id]",
		Short: "Recompute a customer's balance from the transaction log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			r, err := e.svc.Balances.Reconcile(cmd.Context(), accountID, args[0])
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			if err := printJSON(cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if !r.Consistent {
				return fmt.Errorf("customer %s: stored balance %d, log sums to %d", r.CustomerID, r.Balance, r.Computed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "owning account id")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func migrateCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := db.Pending()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()
			if e.cfg.StorageDriver != "postgres" {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=postgres, got %q", e.cfg.StorageDriver)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the bundled migration files and exit")
	return cmd
}

func gcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Purge expired token revocations now",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			scheduler.NewJobs(e.repos.Revocations, nil, clock.System, e.cfg.StoreTimeout(), e.log).RunAll()
			fmt.Fprintln(cmd.OutOrStdout(), "gc done")
			return nil
		},
	}
}
