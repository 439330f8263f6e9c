package token

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-auth-core/internal/keystore"
	"tenant-auth-core/internal/model"
)

var testMaterial = sync.OnceValue(func() *keystore.Material {
	material, _, err := keystore.Generate(2048)
	if err != nil {
		panic(err)
	}
	return material
})

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var alice = model.UserPrincipal{ID: 42, CustomerID: 1, Role: model.RoleUser, AccountEnabled: true}

func TestCodec_AccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issuedAt}
	codec := NewCodec(testMaterial(), WithClock(clock.Now))

	raw, err := codec.Issue(NewAccessClaims(alice, issuedAt))
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.True(t, claims.Scope.Has(ScopeUser))
	assert.Equal(t, int64(1), claims.CustomerID)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.Equal(t, int64(3600), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())

	userID, ok := claims.UserID()
	require.True(t, ok)
	assert.Equal(t, int64(42), userID)
}

func TestCodec_AccessTokenTTL(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issuedAt}
	codec := NewCodec(testMaterial(), WithClock(clock.Now))

	raw, err := codec.Issue(NewAccessClaims(alice, issuedAt))
	require.NoError(t, err)

	clock.Set(issuedAt.Add(59 * time.Minute))
	_, err = codec.Verify(raw)
	require.NoError(t, err)

	clock.Set(issuedAt.Add(time.Hour + time.Second))
	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestCodec_RefreshTokenCarriesOnlySubject(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	codec := NewCodec(testMaterial())

	raw, err := codec.Issue(NewRefreshClaims(alice, now))
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	require.NoError(t, err)
	payload := parsed.Claims.(jwt.MapClaims)
	assert.NotContains(t, payload, "role")
	assert.NotContains(t, payload, "scope")
	assert.NotContains(t, payload, "customerId")
	assert.Equal(t, "refresh", payload["type"])

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.Type)
	assert.False(t, claims.HasCustomer())
	assert.Zero(t, claims.Scope.Len())
	assert.Equal(t, int64(RefreshTTL/time.Second), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
}

func TestCodec_ClientAccessToken(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	codec := NewCodec(testMaterial())

	raw, err := codec.Issue(NewAccessClaims(model.ClientPrincipal{ID: 7, ClientID: "reporting"}, now))
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "client:7", claims.Subject)
	assert.True(t, claims.Scope.Has(ScopeClient))
	assert.False(t, claims.HasCustomer())
	assert.Empty(t, claims.Role)

	_, ok := claims.UserID()
	assert.False(t, ok)
}

func TestCodec_RejectsUntrustedTokens(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	codec := NewCodec(testMaterial())

	t.Run("garbage", func(t *testing.T) {
		_, err := codec.Verify("definitely-not-a-token")
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})

	t.Run("signed by another key", func(t *testing.T) {
		other, _, err := keystore.Generate(2048)
		require.NoError(t, err)

		raw, err := NewCodec(other).Issue(NewAccessClaims(alice, now))
		require.NoError(t, err)

		_, err = codec.Verify(raw)
		require.ErrorIs(t, err, model.ErrSignatureInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		raw, err := codec.Issue(NewAccessClaims(alice, now))
		require.NoError(t, err)

		forged, err := NewCodec(testMaterial()).Issue(NewAccessClaims(model.UserPrincipal{ID: 42, CustomerID: 2, Role: model.RoleAdmin}, now))
		require.NoError(t, err)

		parts := strings.Split(raw, ".")
		forgedParts := strings.Split(forged, ".")
		_, err = codec.Verify(parts[0] + "." + forgedParts[1] + "." + parts[2])
		require.ErrorIs(t, err, model.ErrSignatureInvalid)
	})

	t.Run("hmac algorithm confusion", func(t *testing.T) {
		hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss":  Issuer,
			"sub":  "42",
			"type": "access",
			"exp":  now.Add(time.Hour).Unix(),
		})
		raw, err := hs.SignedString([]byte("guessable"))
		require.NoError(t, err)

		_, err = codec.Verify(raw)
		require.ErrorIs(t, err, model.ErrSignatureInvalid)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		foreign := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":  "someone-else",
			"sub":  "42",
			"type": "access",
			"exp":  now.Add(time.Hour).Unix(),
		})
		raw, err := foreign.SignedString(testMaterial().PrivateKey)
		require.NoError(t, err)

		_, err = codec.Verify(raw)
		require.ErrorIs(t, err, model.ErrSignatureInvalid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExp := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":  Issuer,
			"sub":  "42",
			"type": "access",
		})
		raw, err := noExp.SignedString(testMaterial().PrivateKey)
		require.NoError(t, err)

		_, err = codec.Verify(raw)
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})

	t.Run("unknown type", func(t *testing.T) {
		odd := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":  Issuer,
			"sub":  "42",
			"type": "session",
			"exp":  now.Add(time.Hour).Unix(),
		})
		raw, err := odd.SignedString(testMaterial().PrivateKey)
		require.NoError(t, err)

		_, err = codec.Verify(raw)
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})
}

func TestScopeSet_ExactMembership(t *testing.T) {
	t.Parallel()

	set := NewScopeSet("ADMIN_VIEWER", ScopeUser)
	assert.False(t, set.Has(ScopeAdmin))
	assert.True(t, set.Has(ScopeUser))
	assert.False(t, set.HasAny(ScopeAdmin, ScopeClient))
	assert.Equal(t, []string{"ADMIN_VIEWER", "USER"}, set.Slice())
}

func TestParseSubject(t *testing.T) {
	t.Parallel()

	kind, id, err := ParseSubject("17")
	require.NoError(t, err)
	assert.Equal(t, model.PrincipalUser, kind)
	assert.Equal(t, int64(17), id)

	kind, id, err = ParseSubject("client:3")
	require.NoError(t, err)
	assert.Equal(t, model.PrincipalClient, kind)
	assert.Equal(t, int64(3), id)

	for _, bad := range []string{"", "abc", "client:", "-4", "client:x"} {
		_, _, err := ParseSubject(bad)
		require.ErrorIs(t, err, model.ErrTokenMalformed, bad)
	}
}
