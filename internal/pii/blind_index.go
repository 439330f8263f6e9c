package pii

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BlindIndex is hex(HMAC-SHA256(key, input)). It is only ever compared for
// equality and never decrypted.
type BlindIndex string

type BlindIndexer struct {
	key []byte
}

func NewBlindIndexer(key []byte) *BlindIndexer {
	k := make([]byte, len(key))
	copy(k, key)
	return &BlindIndexer{key: k}
}

// Hash is deterministic for a fixed key. Callers normalize input first.
func (b *BlindIndexer) Hash(normalized string) BlindIndex {
	m := hmac.New(sha256.New, b.key)
	_, _ = m.Write([]byte(normalized))
	return BlindIndex(hex.EncodeToString(m.Sum(nil)))
}

// HashEmail normalizes an email address and hashes it.
func (b *BlindIndexer) HashEmail(email string) BlindIndex {
	return b.Hash(NormalizeEmail(email))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
