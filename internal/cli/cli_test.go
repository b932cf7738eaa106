package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/investment-ledger/internal/vault"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	out, err := execute(t, "keygen")
	require.NoError(t, err)

	_, err = vault.New([]string{strings.TrimSpace(out)})
	assert.NoError(t, err, "generated key must be accepted by the vault")
}

func TestMigrateAndAccrue(t *testing.T) {
	dir := t.TempDir()
	key, err := vault.GenerateKey()
	require.NoError(t, err)

	t.Setenv("DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("FERNET_KEYS", key)
	t.Setenv("CATALOG_PATH", filepath.Join("..", "..", "config", "products.toml"))
	t.Setenv("PLATFORM_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")

	t.Run("accrue refuses an unmigrated database", func(t *testing.T) {
		_, err := execute(t, "accrue", "--date", "2024-03-07")
		assert.Error(t, err)
	})

	t.Run("migrate applies the schema", func(t *testing.T) {
		out, err := execute(t, "migrate")
		require.NoError(t, err)
		assert.Contains(t, out, "schema version:")

		out, err = execute(t, "migrate", "--status")
		require.NoError(t, err)
		assert.Contains(t, out, "pending: false")
	})

	t.Run("accrue on an empty ledger", func(t *testing.T) {
		out, err := execute(t, "accrue", "--date", "2024-03-07")
		require.NoError(t, err)
		assert.Contains(t, out, `"grantDate": "2024-03-07"`)
	})

	t.Run("balance of an unknown account is zero", func(t *testing.T) {
		out, err := execute(t, "balance", "acct-a")
		require.NoError(t, err)
		assert.Equal(t, "0.00", strings.TrimSpace(out))
	})
}
