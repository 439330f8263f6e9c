package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/model"
)

func TestActionTokenService_PasswordResetLifecycle(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("redeemed after 31 minutes is expired", func(t *testing.T) {
		svc := NewActionTokenService(newMemActionTokens(), time.UTC, event.Discard{})
		svc.now = func() time.Time { return issuedAt }

		issued, err := svc.Issue(ctx, model.PurposePasswordReset, 7)
		require.NoError(t, err)
		assert.Equal(t, issuedAt.Add(30*time.Minute), issued.ExpiresAt)

		svc.now = func() time.Time { return issuedAt.Add(31 * time.Minute) }
		_, err = svc.Redeem(ctx, model.PurposePasswordReset, issued.Value)
		require.ErrorIs(t, err, model.ErrActionTokenExpired)
	})

	t.Run("redeemed after 29 minutes succeeds once", func(t *testing.T) {
		svc := NewActionTokenService(newMemActionTokens(), time.UTC, event.Discard{})
		svc.now = func() time.Time { return issuedAt }

		issued, err := svc.Issue(ctx, model.PurposePasswordReset, 7)
		require.NoError(t, err)

		svc.now = func() time.Time { return issuedAt.Add(29 * time.Minute) }
		redeemed, err := svc.Redeem(ctx, model.PurposePasswordReset, issued.Value)
		require.NoError(t, err)
		assert.Equal(t, int64(7), redeemed.SubjectID)

		_, err = svc.Redeem(ctx, model.PurposePasswordReset, issued.Value)
		require.ErrorIs(t, err, model.ErrActionTokenNotFound)
	})
}

func TestActionTokenService_PurposeTTLs(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewActionTokenService(newMemActionTokens(), time.UTC, event.Discard{})
	svc.now = func() time.Time { return now }

	cases := map[model.ActionPurpose]time.Duration{
		model.PurposeEmailVerification: 6 * time.Hour,
		model.PurposePasswordReset:     30 * time.Minute,
		model.PurposeResponseRating:    7 * 24 * time.Hour,
	}
	for purpose, ttl := range cases {
		issued, err := svc.Issue(context.Background(), purpose, 1)
		require.NoError(t, err)
		assert.Equal(t, now.Add(ttl), issued.ExpiresAt, string(purpose))
		assert.Len(t, issued.Value, 43)
	}

	_, err := svc.Issue(context.Background(), model.ActionPurpose("bogus"), 1)
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestActionTokenService_PurposeMismatchDoesNotConsume(t *testing.T) {
	t.Parallel()

	svc := NewActionTokenService(newMemActionTokens(), time.UTC, event.Discard{})
	ctx := context.Background()

	issued, err := svc.Issue(ctx, model.PurposeEmailVerification, 3)
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, model.PurposePasswordReset, issued.Value)
	require.ErrorIs(t, err, model.ErrActionTokenNotFound)

	_, err = svc.Redeem(ctx, model.PurposeEmailVerification, issued.Value)
	require.NoError(t, err)
}

func TestActionTokenService_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	store := newMemActionTokens()
	store.exists = func(value string) bool { return value == "taken-0" || value == "taken-1" }

	svc := NewActionTokenService(store, time.UTC, event.Discard{})
	calls := 0
	svc.generate = func() (string, error) {
		defer func() { calls++ }()
		if calls < 2 {
			return fmt.Sprintf("taken-%d", calls), nil
		}
		return "fresh", nil
	}

	issued, err := svc.Issue(context.Background(), model.PurposeResponseRating, 11)
	require.NoError(t, err)
	assert.Equal(t, "fresh", issued.Value)
	assert.Equal(t, 3, calls)
}

func TestActionTokenService_GivesUpAfterRepeatedCollisions(t *testing.T) {
	t.Parallel()

	store := newMemActionTokens()
	store.exists = func(string) bool { return true }

	svc := NewActionTokenService(store, time.UTC, event.Discard{})
	_, err := svc.Issue(context.Background(), model.PurposeResponseRating, 11)
	require.Error(t, err)
}

func TestActionTokenService_FixedZone(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}

	svc := NewActionTokenService(newMemActionTokens(), paris, event.Discard{})
	issued, err := svc.Issue(context.Background(), model.PurposeEmailVerification, 1)
	require.NoError(t, err)
	assert.Equal(t, paris, issued.ExpiresAt.Location())

	_, err = svc.Redeem(context.Background(), model.PurposeEmailVerification, "")
	require.ErrorIs(t, err, model.ErrActionTokenNotFound)
}
