package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/pii"
)

const BcryptCost = 12

// dummyHash is compared against on lookup misses so that unknown identifiers
// cost the same as wrong secrets.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-secret"), BcryptCost)
	if err != nil {
		panic(fmt.Sprintf("generate dummy bcrypt hash: %v", err))
	}
	return hash
})

func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

type CredentialService struct {
	users   UserStore
	clients ClientStore
	index   *pii.BlindIndexer
}

func NewCredentialService(users UserStore, clients ClientStore, index *pii.BlindIndexer) *CredentialService {
	return &CredentialService{users: users, clients: clients, index: index}
}

// Verify checks a presented secret for the principal named by identifier
// (email for users, client name for clients). Every credential problem maps
// to model.ErrAuthenticationFailed; only infrastructure failures differ.
func (s *CredentialService) Verify(ctx context.Context, kind model.PrincipalKind, identifier string, secret string) (model.Principal, error) {
	switch kind {
	case model.PrincipalUser:
		return s.verifyUser(ctx, identifier, secret)
	case model.PrincipalClient:
		return s.verifyClient(ctx, identifier, secret)
	default:
		return nil, model.ErrAuthenticationFailed
	}
}

func (s *CredentialService) verifyUser(ctx context.Context, email string, secret string) (model.Principal, error) {
	user, err := s.users.FindByEmailIndex(ctx, string(s.index.HashEmail(email)))
	if errors.Is(err, model.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(secret))
		return nil, model.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)); err != nil {
		return nil, model.ErrAuthenticationFailed
	}

	principal := user.Principal()
	if err := checkUsable(principal); err != nil {
		slog.Debug("login refused for unusable account", "user_id", user.ID, "enabled", user.AccountEnabled, "locked", user.AccountLocked)
		return nil, err
	}

	return principal, nil
}

func (s *CredentialService) verifyClient(ctx context.Context, clientID string, secret string) (model.Principal, error) {
	client, err := s.clients.FindByClientID(ctx, strings.TrimSpace(clientID))
	if errors.Is(err, model.ErrClientNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(secret))
		return nil, model.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		return nil, model.ErrAuthenticationFailed
	}

	return client.Principal(), nil
}

// Resolve loads the current state of a principal by id. Missing, disabled
// and locked accounts yield model.ErrAuthenticationFailed.
func (s *CredentialService) Resolve(ctx context.Context, kind model.PrincipalKind, id int64) (model.Principal, error) {
	switch kind {
	case model.PrincipalUser:
		user, err := s.users.FindByID(ctx, id)
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrAuthenticationFailed
		}
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		principal := user.Principal()
		if err := checkUsable(principal); err != nil {
			return nil, err
		}
		return principal, nil
	case model.PrincipalClient:
		client, err := s.clients.FindByID(ctx, id)
		if errors.Is(err, model.ErrClientNotFound) {
			return nil, model.ErrAuthenticationFailed
		}
		if err != nil {
			return nil, fmt.Errorf("find client: %w", err)
		}
		return client.Principal(), nil
	default:
		return nil, model.ErrAuthenticationFailed
	}
}

func checkUsable(p model.UserPrincipal) error {
	if !p.AccountEnabled || p.AccountLocked {
		return model.ErrAuthenticationFailed
	}
	return nil
}
