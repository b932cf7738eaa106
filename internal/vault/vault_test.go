package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) (*Vault, string) {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	v, err := New([]string{key})
	require.NoError(t, err)
	return v, key
}

func TestSealOpen(t *testing.T) {
	v, _ := newTestVault(t)

	token, err := v.Seal("HDFC0001234:000123456789")
	require.NoError(t, err)
	assert.NotContains(t, token, "000123456789")

	plain, err := v.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "HDFC0001234:000123456789", plain)
}

func TestOpenWithRotatedKeys(t *testing.T) {
	oldVault, oldKey := newTestVault(t)
	token, err := oldVault.Seal("user@upi")
	require.NoError(t, err)

	newKey, err := GenerateKey()
	require.NoError(t, err)
	rotated, err := New([]string{newKey, oldKey})
	require.NoError(t, err)

	plain, err := rotated.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "user@upi", plain)
}

func TestOpenRejectsForeignToken(t *testing.T) {
	a, _ := newTestVault(t)
	b, _ := newTestVault(t)

	token, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(token)
	assert.ErrorIs(t, err, ErrUnsealFailed)
	assert.False(t, b.Matches(token, "secret"))
}

func TestMatches(t *testing.T) {
	v, _ := newTestVault(t)
	token, err := v.Seal("4321")
	require.NoError(t, err)

	assert.True(t, v.Matches(token, "4321"))
	assert.False(t, v.Matches(token, "1234"))
	assert.False(t, v.Matches("not-a-token", "4321"))
}

func TestNewRequiresKeys(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]string{"not base64"})
	assert.Error(t, err)
}
