// Package vault seals sensitive document numbers before they reach any store.
// The verification core only ever persists sealed tokens plus a last-four
// projection; raw numbers exist transiently at issuance time.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer is the tokenization collaborator consumed by the verification core.
type Sealer interface {
	// Seal encrypts a raw document number into an opaque token.
	Seal(plain string) (string, error)
	// Open reverses Seal. Only audit/export paths should need it.
	Open(token string) (string, error)
}

// Vault seals values with XChaCha20-Poly1305. Tokens are
// base64url(nonce || ciphertext) and carry no recoverable structure.
type Vault struct {
	key []byte
}

// New constructs a Vault from a hex-encoded 32-byte key.
func New(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("vault key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Vault{key: key}, nil
}

// NewDev derives a deterministic key from a seed string. For development and
// tests only; production wiring requires an explicit key.
func NewDev(seed string) *Vault {
	sum := sha256.Sum256([]byte("kyc-gateway-dev-vault:" + seed))
	return &Vault{key: sum[:]}
}

func (v *Vault) Seal(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (v *Vault) Open(token string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("token is not valid base64: %w", err)
	}
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("token too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	return string(plain), nil
}
