// Package vault seals small secrets (payout destinations, withdrawal PINs)
// with fernet before they are written to the database.
package vault

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrUnsealFailed is returned when a token was not produced by any configured key.
var ErrUnsealFailed = errors.New("vault: token could not be verified")

// Vault encrypts with the first key and decrypts with any key, which allows rotation.
type Vault struct {
	keys []*fernet.Key
}

// New builds a Vault from base64 fernet keys.
func New(encodedKeys []string) (*Vault, error) {
	if len(encodedKeys) == 0 {
		return nil, errors.New("vault: at least one fernet key is required")
	}
	keys, err := fernet.DecodeKeys(encodedKeys...)
	if err != nil {
		return nil, fmt.Errorf("vault: invalid fernet key: %w", err)
	}
	return &Vault{keys: keys}, nil
}

// GenerateKey returns a fresh encoded fernet key.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("vault: failed to generate key: %w", err)
	}
	return k.Encode(), nil
}

// Seal encrypts plaintext.
func (v *Vault) Seal(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), v.keys[0])
	if err != nil {
		return "", fmt.Errorf("vault: failed to seal: %w", err)
	}
	return string(tok), nil
}

// Open decrypts a token produced by Seal.
func (v *Vault) Open(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, v.keys)
	if msg == nil {
		return "", ErrUnsealFailed
	}
	return string(msg), nil
}

// Matches reports whether token seals exactly candidate, in constant time.
func (v *Vault) Matches(token, candidate string) bool {
	plain, err := v.Open(token)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plain), []byte(candidate)) == 1
}
