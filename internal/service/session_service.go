package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/metrics"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/token"
)

type SessionService struct {
	credentials *CredentialService
	codec       *token.Codec
	bus         event.Bus
	now         func() time.Time
}

func NewSessionService(credentials *CredentialService, codec *token.Codec, bus event.Bus) *SessionService {
	return &SessionService{
		credentials: credentials,
		codec:       codec,
		bus:         bus,
		now:         time.Now,
	}
}

// Login verifies the credential and issues an access and a refresh token.
func (s *SessionService) Login(ctx context.Context, kind model.PrincipalKind, identifier string, secret string) (model.TokenPair, error) {
	principal, err := s.credentials.Verify(ctx, kind, identifier, secret)
	if err != nil {
		if errors.Is(err, model.ErrAuthenticationFailed) {
			metrics.LoginTotal.WithLabelValues(string(kind), "failed").Inc()
			s.bus.Publish(event.New(event.TypeLoginFailed, "", map[string]any{"kind": string(kind)}))
		}
		return model.TokenPair{}, err
	}

	now := s.now().UTC()
	access, err := s.codec.Issue(token.NewAccessClaims(principal, now))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(token.NewRefreshClaims(principal, now))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	metrics.LoginTotal.WithLabelValues(string(kind), "succeeded").Inc()
	s.bus.Publish(event.New(event.TypeLoginSucceeded, token.SubjectFor(principal), map[string]any{"kind": string(kind)}))

	return pair(access, refresh), nil
}

// Refresh exchanges a refresh token for a new access token computed from the
// principal's current state. The refresh token itself is returned unchanged;
// it is not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("rejected").Inc()
		return model.TokenPair{}, err
	}

	if claims.Type != token.TypeRefresh {
		s.reject(claims.Subject, "wrong_token_type")
		return model.TokenPair{}, model.ErrInvalidRefreshToken
	}

	kind, id, err := token.ParseSubject(claims.Subject)
	if err != nil {
		s.reject(claims.Subject, "bad_subject")
		return model.TokenPair{}, model.ErrInvalidRefreshToken
	}

	principal, err := s.credentials.Resolve(ctx, kind, id)
	if errors.Is(err, model.ErrAuthenticationFailed) {
		s.reject(claims.Subject, "principal_unusable")
		return model.TokenPair{}, model.ErrInvalidRefreshToken
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	access, err := s.codec.Issue(token.NewAccessClaims(principal, s.now().UTC()))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	metrics.RefreshTotal.WithLabelValues("succeeded").Inc()
	s.bus.Publish(event.New(event.TypeTokenRefreshed, claims.Subject, nil))

	return pair(access, refreshToken), nil
}

func (s *SessionService) reject(subject string, reason string) {
	metrics.RefreshTotal.WithLabelValues("rejected").Inc()
	s.bus.Publish(event.New(event.TypeRefreshRejected, subject, map[string]any{"reason": reason}))
}

func pair(access string, refresh string) model.TokenPair {
	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(token.AccessTTL.Seconds()),
	}
}
