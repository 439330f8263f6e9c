// Package token signs and verifies the RS256 bearer tokens issued at login
// and refresh.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenant-auth-core/internal/keystore"
	"tenant-auth-core/internal/metrics"
	"tenant-auth-core/internal/model"
)

// wireClaims is the JSON layout of the token payload.
type wireClaims struct {
	Role       string    `json:"role,omitempty"`
	Scope      *ScopeSet `json:"scope,omitempty"`
	CustomerID *int64    `json:"customerId,omitempty"`
	Type       Type      `json:"type"`
	jwt.RegisteredClaims
}

type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	now        func() time.Time
}

type Option func(*Codec)

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(material *keystore.Material, opts ...Option) *Codec {
	c := &Codec{
		privateKey: material.PrivateKey,
		publicKey:  material.PublicKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Issue(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return "", fmt.Errorf("issue token: unknown type %q", claims.Type)
	}

	wire := wireClaims{
		Type: claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	if claims.Type == TypeAccess {
		wire.Role = string(claims.Role)
		scope := claims.Scope
		wire.Scope = &scope
		if claims.HasCustomer() {
			customerID := claims.CustomerID
			wire.CustomerID = &customerID
		}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, wire).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature, issuer and expiry. Errors are one of
// model.ErrTokenMalformed, model.ErrSignatureInvalid or model.ErrTokenExpired.
// The token text is never included in the returned error.
func (c *Codec) Verify(raw string) (Claims, error) {
	wire := &wireClaims{}
	_, err := jwt.ParseWithClaims(raw, wire, func(*jwt.Token) (any, error) {
		return c.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		mapped := mapVerifyError(err)
		metrics.TokenVerifyFailures.WithLabelValues(reasonLabel(mapped)).Inc()
		return Claims{}, mapped
	}

	if wire.Type != TypeAccess && wire.Type != TypeRefresh {
		metrics.TokenVerifyFailures.WithLabelValues("malformed").Inc()
		return Claims{}, fmt.Errorf("%w: unknown token type", model.ErrTokenMalformed)
	}
	if _, _, err := ParseSubject(wire.Subject); err != nil {
		metrics.TokenVerifyFailures.WithLabelValues("malformed").Inc()
		return Claims{}, err
	}

	claims := Claims{
		Issuer:     wire.Issuer,
		Subject:    wire.Subject,
		Role:       model.Role(wire.Role),
		Scope:      NewScopeSet(),
		CustomerID: NoCustomer,
		Type:       wire.Type,
		ExpiresAt:  wire.ExpiresAt.Time,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.Scope != nil {
		claims.Scope = *wire.Scope
	}
	if wire.CustomerID != nil {
		claims.CustomerID = *wire.CustomerID
	}

	return claims, nil
}

func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return model.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return model.ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.ErrTokenExpired
	default:
		return model.ErrTokenMalformed
	}
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, model.ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}
