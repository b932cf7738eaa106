package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndewijer/investment-ledger/internal/config"
	"github.com/ndewijer/investment-ledger/internal/database"
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("status", false, "Only report the schema version and whether migrations are pending")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	statusOnly, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if statusOnly {
		current, pending, err := database.SchemaStatus(cmd.Context(), db)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema version: %d\npending: %t\n", current, pending)
		return nil
	}

	version, err := database.Migrate(cmd.Context(), db)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version: %d\n", version)
	return nil
}
