package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-auth-core/internal/authz"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/token"
)

func TestSessionService_Login(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.addUser(t, 101, 1, "alice@example.com", "correct horse", model.RoleUser)
	ctx := context.Background()

	t.Run("correct secret returns verifiable access token", func(t *testing.T) {
		pair, err := h.sessions.Login(ctx, model.PrincipalUser, "alice@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "Bearer", pair.TokenType)
		assert.Equal(t, int64(3600), pair.ExpiresIn)

		claims, err := h.codec.Verify(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "101", claims.Subject)
		assert.Equal(t, int64(3600), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
		assert.Equal(t, alice.CustomerID, claims.CustomerID)
		assert.True(t, claims.Scope.Has(token.ScopeUser))

		refresh, err := h.codec.Verify(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, token.TypeRefresh, refresh.Type)
		assert.Equal(t, "101", refresh.Subject)
	})

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		_, err := h.sessions.Login(ctx, model.PrincipalUser, "  ALICE@example.com", "correct horse")
		require.NoError(t, err)
	})

	t.Run("wrong secret and unknown user fail identically", func(t *testing.T) {
		pair, err := h.sessions.Login(ctx, model.PrincipalUser, "alice@example.com", "wrong")
		require.ErrorIs(t, err, model.ErrAuthenticationFailed)
		assert.Empty(t, pair.AccessToken)
		assert.Empty(t, pair.RefreshToken)

		_, err2 := h.sessions.Login(ctx, model.PrincipalUser, "nobody@example.com", "correct horse")
		require.ErrorIs(t, err2, model.ErrAuthenticationFailed)
		assert.Equal(t, err.Error(), err2.Error())
	})

	t.Run("disabled and locked accounts cannot log in", func(t *testing.T) {
		disabled := h.addUser(t, 102, 1, "bob@example.com", "password-bob", model.RoleUser)
		require.NoError(t, h.users.SetEnabled(ctx, disabled.ID, false))
		_, err := h.sessions.Login(ctx, model.PrincipalUser, "bob@example.com", "password-bob")
		require.ErrorIs(t, err, model.ErrAuthenticationFailed)

		locked := h.addUser(t, 103, 1, "carol@example.com", "password-carol", model.RoleUser)
		locked.AccountLocked = true
		_, err = h.users.Create(ctx, locked)
		require.NoError(t, err)
		_, err = h.sessions.Login(ctx, model.PrincipalUser, "carol@example.com", "password-carol")
		require.ErrorIs(t, err, model.ErrAuthenticationFailed)
	})

	t.Run("clients log in with their secret", func(t *testing.T) {
		h.addClient(t, 5, "reporting", "client-secret")

		pair, err := h.sessions.Login(ctx, model.PrincipalClient, "reporting", "client-secret")
		require.NoError(t, err)

		claims, err := h.codec.Verify(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "client:5", claims.Subject)
		assert.True(t, claims.Scope.Has(token.ScopeClient))
		assert.False(t, claims.HasCustomer())

		_, err = h.sessions.Login(ctx, model.PrincipalClient, "reporting", "nope")
		require.ErrorIs(t, err, model.ErrAuthenticationFailed)
	})
}

func TestSessionService_Refresh(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	user := h.addUser(t, 201, 2, "dave@example.com", "password-dave", model.RoleUser)

	pair, err := h.sessions.Login(ctx, model.PrincipalUser, "dave@example.com", "password-dave")
	require.NoError(t, err)

	t.Run("refresh returns new access token and the same refresh token", func(t *testing.T) {
		h.sessions.now = func() time.Time { return time.Now().Add(2 * time.Second) }
		t.Cleanup(func() { h.sessions.now = time.Now })

		refreshed, err := h.sessions.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, refreshed.AccessToken)

		claims, err := h.codec.Verify(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, token.TypeAccess, claims.Type)
		assert.Equal(t, int64(2), claims.CustomerID)
	})

	t.Run("access token presented to refresh is rejected", func(t *testing.T) {
		_, err := h.sessions.Refresh(ctx, pair.AccessToken)
		require.ErrorIs(t, err, model.ErrInvalidRefreshToken)
	})

	t.Run("refresh token presented to a resource is denied", func(t *testing.T) {
		claims, err := h.codec.Verify(pair.RefreshToken)
		require.NoError(t, err)
		require.ErrorIs(t, authz.Authorize(claims, authz.ForTenant(2)), model.ErrIdor)
	})

	t.Run("role change takes effect on next refresh", func(t *testing.T) {
		promoted := user
		promoted.Role = model.RoleManager
		_, err := h.users.Create(ctx, promoted)
		require.NoError(t, err)

		refreshed, err := h.sessions.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		claims, err := h.codec.Verify(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, model.RoleManager, claims.Role)
		assert.True(t, claims.Scope.Has(token.ScopeManager))
	})

	t.Run("disabled account cannot refresh", func(t *testing.T) {
		require.NoError(t, h.users.SetEnabled(ctx, user.ID, false))
		t.Cleanup(func() { _ = h.users.SetEnabled(ctx, user.ID, true) })

		_, err := h.sessions.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, model.ErrInvalidRefreshToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := h.sessions.Refresh(ctx, "abc.def.ghi")
		require.Error(t, err)
	})

	t.Run("client refresh resolves the client", func(t *testing.T) {
		h.addClient(t, 9, "billing", "billing-secret")
		clientPair, err := h.sessions.Login(ctx, model.PrincipalClient, "billing", "billing-secret")
		require.NoError(t, err)

		refreshed, err := h.sessions.Refresh(ctx, clientPair.RefreshToken)
		require.NoError(t, err)
		claims, err := h.codec.Verify(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "client:9", claims.Subject)
	})
}

func TestSessionService_ExpiredRefreshToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.addUser(t, 301, 1, "erin@example.com", "password-erin", model.RoleUser)

	issuedAt := time.Now().Add(-49 * time.Hour)
	h.sessions.now = func() time.Time { return issuedAt }

	pair, err := h.sessions.Login(ctx, model.PrincipalUser, "erin@example.com", "password-erin")
	require.NoError(t, err)

	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}
