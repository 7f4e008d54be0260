package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnvVar names the environment variable holding the vault's
// master key material. Any non-empty value is accepted as input
// keying material and stretched through HKDF; it need not itself be
// 32 bytes.
const MasterKeyEnvVar = "AQUACTL_MASTER_KEY"

var vaultInfo = []byte("aquactl-credential-vault-v1")

// ErrSealedValueInvalid is returned by Open when the sealed input is
// too short, malformed, or fails authentication (wrong key or
// tampered ciphertext).
var ErrSealedValueInvalid = errors.New("vault: sealed value is invalid or was not sealed with this key")

// Vault seals and opens short secrets (device credentials) with a key
// derived once at construction time. A Vault is safe for concurrent
// use; AES-GCM sealing carries no mutable state.
type Vault struct {
	aead cipher.AEAD
}

// NewFromEnv derives a Vault's key from MasterKeyEnvVar. If the
// variable is unset, a fresh random key is generated for this process
// only: secrets sealed under it cannot be opened after a restart,
// which is acceptable for a vault whose only consumer is the current
// process's own snapshot/report export path.
func NewFromEnv() (*Vault, error) {
	if secret := os.Getenv(MasterKeyEnvVar); secret != "" {
		return New([]byte(secret))
	}
	ephemeral := make([]byte, 32)
	if _, err := rand.Read(ephemeral); err != nil {
		return nil, fmt.Errorf("vault: generating ephemeral master key: %w", err)
	}
	return New(ephemeral)
}

// New derives a Vault's AES-256-GCM key from secret via HKDF-SHA256.
func New(secret []byte) (*Vault, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, vaultInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("vault: deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: building cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: building AEAD: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext and returns a base64 token safe to embed in
// a JSON or YAML export: nonce || ciphertext, base64-encoded.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: generating nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal using this Vault's key.
func (v *Vault) Open(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSealedValueInvalid, err)
	}
	nonceSize := v.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrSealedValueInvalid
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealedValueInvalid
	}
	return string(plaintext), nil
}
