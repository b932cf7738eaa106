package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndewijer/investment-ledger/internal/vault"
)

func init() {
	rootCmd.AddCommand(keygenCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a key for FERNET_KEYS",
	Long: `Generate a fresh key for sealing withdrawal PINs and payout destinations.
To rotate, prepend the new key to FERNET_KEYS and keep the old ones after it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := vault.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}
