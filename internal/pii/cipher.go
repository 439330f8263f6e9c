// Package pii protects personal data at rest: authenticated encryption of
// field values and blind indexes for equality lookups over encrypted columns.
package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"tenant-auth-core/internal/metrics"
	"tenant-auth-core/internal/model"
)

// EncryptedField is base64(nonce || ciphertext || tag). Ciphertexts are
// never compared or indexed; use a BlindIndex for lookups.
type EncryptedField string

type FieldCipher struct {
	aead cipher.AEAD
}

func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: aes key must be 32 bytes", model.ErrMissingKeyMaterial)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: aes key: %v", model.ErrMissingKeyMaterial, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random 96-bit nonce.
func (c *FieldCipher) Encrypt(plaintext string) (EncryptedField, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedField(base64.StdEncoding.EncodeToString(sealed)), nil
}

// Decrypt opens a field produced by Encrypt. Corrupt input or a tag mismatch
// returns model.ErrDecryptionFailed, never partial plaintext.
func (c *FieldCipher) Decrypt(field EncryptedField) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(string(field))
	if err != nil {
		metrics.DecryptFailures.Inc()
		return "", fmt.Errorf("%w: invalid encoding", model.ErrDecryptionFailed)
	}

	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		metrics.DecryptFailures.Inc()
		return "", fmt.Errorf("%w: ciphertext too short", model.ErrDecryptionFailed)
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		metrics.DecryptFailures.Inc()
		return "", fmt.Errorf("%w: authentication tag mismatch", model.ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// EncryptAll encrypts several values in order, stopping at the first error.
func (c *FieldCipher) EncryptAll(values ...string) ([]EncryptedField, error) {
	out := make([]EncryptedField, 0, len(values))
	for _, v := range values {
		field, err := c.Encrypt(v)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	return out, nil
}
