package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndewijer/investment-ledger/internal/model"
)

func init() {
	rootCmd.AddCommand(accrueCmd)

	accrueCmd.Flags().String("date", "", "Grant date as YYYY-MM-DD in PLATFORM_TIMEZONE (default today)")
}

var accrueCmd = &cobra.Command{
	Use:   "accrue",
	Short: "Run the daily accrual once",
	Long: `Pay one day of income to every active investment for the given date.
Runs are idempotent: investments already paid for the date are skipped, so
a failed or interrupted run can simply be repeated.`,
	Args: cobra.NoArgs,
	RunE: runAccrue,
}

func runAccrue(cmd *cobra.Command, _ []string) error {
	dateFlag, _ := cmd.Flags().GetString("date")

	a, err := loadApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	at := time.Now()
	if dateFlag != "" {
		if at, err = time.ParseInLocation(model.DateLayout, dateFlag, a.cfg.Platform.Location); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	summary, err := a.services.Accrual.Run(cmd.Context(), at)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d investments failed to accrue; rerun to retry them", summary.Failed)
	}
	return nil
}
