// Package cli implements the ledgerd command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ndewijer/investment-ledger/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerd",
	Short: "Ledger and accrual engine for investment plans",
	Long: `ledgerd keeps an append-only ledger of account money movements,
pays daily income on purchased plans, rewards referrers and runs the
withdrawal flow. Configuration is read from the environment and an
optional .env file.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
