// Package keystore loads the process-wide key material once at startup.
//
// A Material value is immutable after Load returns and is passed explicitly
// to every consumer; there is no package-level key state.
package keystore

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"tenant-auth-core/internal/model"
)

const (
	AESKeySize     = 32
	MinHMACKeySize = 32
)

// Source holds the raw base64 values read from the environment.
type Source struct {
	RSAPrivateKey string
	RSAPublicKey  string
	AESKey        string
	HMACKey       string
}

type Material struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	AESKey     []byte
	HMACKey    []byte
}

// Load decodes every key in src. Any missing or malformed value yields an
// error wrapping model.ErrMissingKeyMaterial; the process must not start.
func Load(src Source) (*Material, error) {
	privPEM, err := decodeBase64("RSA_PRIVATE_KEY", src.RSAPrivateKey)
	if err != nil {
		return nil, err
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA_PRIVATE_KEY: %v", model.ErrMissingKeyMaterial, err)
	}

	pubPEM, err := decodeBase64("RSA_PUBLIC_KEY", src.RSAPublicKey)
	if err != nil {
		return nil, err
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA_PUBLIC_KEY: %v", model.ErrMissingKeyMaterial, err)
	}
	if !publicKey.Equal(&privateKey.PublicKey) {
		return nil, fmt.Errorf("%w: RSA_PUBLIC_KEY does not match RSA_PRIVATE_KEY", model.ErrMissingKeyMaterial)
	}

	aesKey, err := decodeBase64("AES_KEY", src.AESKey)
	if err != nil {
		return nil, err
	}
	if len(aesKey) != AESKeySize {
		return nil, fmt.Errorf("%w: AES_KEY must decode to %d bytes, got %d", model.ErrMissingKeyMaterial, AESKeySize, len(aesKey))
	}

	hmacKey, err := decodeBase64("HMAC_KEY", src.HMACKey)
	if err != nil {
		return nil, err
	}
	if len(hmacKey) < MinHMACKeySize {
		return nil, fmt.Errorf("%w: HMAC_KEY must decode to at least %d bytes", model.ErrMissingKeyMaterial, MinHMACKeySize)
	}

	return &Material{
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		AESKey:     aesKey,
		HMACKey:    hmacKey,
	}, nil
}

// Generate creates fresh key material. It is used by cmd/keygen and tests.
func Generate(rsaBits int) (*Material, Source, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, Source{}, fmt.Errorf("generate rsa key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, Source{}, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, Source{}, fmt.Errorf("marshal public key: %w", err)
	}

	aesKey := make([]byte, AESKeySize)
	if _, err := rand.Read(aesKey); err != nil {
		return nil, Source{}, fmt.Errorf("generate aes key: %w", err)
	}
	hmacKey := make([]byte, MinHMACKeySize)
	if _, err := rand.Read(hmacKey); err != nil {
		return nil, Source{}, fmt.Errorf("generate hmac key: %w", err)
	}

	src := Source{
		RSAPrivateKey: base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		RSAPublicKey:  base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		AESKey:        base64.StdEncoding.EncodeToString(aesKey),
		HMACKey:       base64.StdEncoding.EncodeToString(hmacKey),
	}

	return &Material{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		AESKey:     aesKey,
		HMACKey:    hmacKey,
	}, src, nil
}

func decodeBase64(name string, raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is not set", model.ErrMissingKeyMaterial, name)
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", model.ErrMissingKeyMaterial, name)
	}

	return decoded, nil
}
