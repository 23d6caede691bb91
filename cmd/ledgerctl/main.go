// Command ledgerctl is the operator CLI: account and customer setup, PIN
// resets, reconciliation, migrations and cleanup.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the prepaid ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(accountCmd())
	root.AddCommand(customerCmd())
	root.AddCommand(resetPinCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(gcCmd())
	return root
}
