package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/metrics"
	"tenant-auth-core/internal/model"
)

const (
	actionTokenBytes       = 32
	maxActionTokenAttempts = 5
)

type ActionTokenService struct {
	store    ActionTokenStore
	loc      *time.Location
	bus      event.Bus
	now      func() time.Time
	generate func() (string, error)
}

// NewActionTokenService compares expiry against wall-clock time in loc.
func NewActionTokenService(store ActionTokenStore, loc *time.Location, bus event.Bus) *ActionTokenService {
	if loc == nil {
		loc = time.UTC
	}
	return &ActionTokenService{
		store:    store,
		loc:      loc,
		bus:      bus,
		now:      time.Now,
		generate: randomActionToken,
	}
}

// Issue creates a fresh token for purpose, unique across all purposes.
func (s *ActionTokenService) Issue(ctx context.Context, purpose model.ActionPurpose, subjectID int64) (model.ActionToken, error) {
	if !purpose.Valid() {
		return model.ActionToken{}, fmt.Errorf("%w: unknown action purpose %q", model.ErrInvalidInput, purpose)
	}

	value, err := s.uniqueValue(ctx)
	if err != nil {
		return model.ActionToken{}, err
	}

	now := s.clock()
	t := model.ActionToken{
		Value:     value,
		Purpose:   purpose,
		SubjectID: subjectID,
		ExpiresAt: now.Add(purpose.TTL()),
		CreatedAt: now,
	}
	if err := s.store.Save(ctx, t); err != nil {
		return model.ActionToken{}, fmt.Errorf("save action token: %w", err)
	}

	metrics.ActionTokens.WithLabelValues(string(purpose), "issued").Inc()
	s.bus.Publish(event.New(event.TypeActionTokenIssued, "", map[string]any{
		"purpose":    string(purpose),
		"subject_id": subjectID,
	}))

	return t, nil
}

// Redeem consumes a token. A token is usable once: a second redemption
// reports model.ErrActionTokenNotFound. An expired token is also consumed and
// reports model.ErrActionTokenExpired.
func (s *ActionTokenService) Redeem(ctx context.Context, purpose model.ActionPurpose, value string) (model.ActionToken, error) {
	if value == "" {
		return model.ActionToken{}, model.ErrActionTokenNotFound
	}

	t, err := s.store.Consume(ctx, purpose, value)
	if errors.Is(err, model.ErrActionTokenNotFound) {
		metrics.ActionTokens.WithLabelValues(string(purpose), "not_found").Inc()
		return model.ActionToken{}, err
	}
	if err != nil {
		return model.ActionToken{}, fmt.Errorf("consume action token: %w", err)
	}

	if !s.clock().Before(t.ExpiresAt.In(s.loc)) {
		metrics.ActionTokens.WithLabelValues(string(purpose), "expired").Inc()
		return model.ActionToken{}, model.ErrActionTokenExpired
	}

	metrics.ActionTokens.WithLabelValues(string(purpose), "redeemed").Inc()
	s.bus.Publish(event.New(event.TypeActionTokenRedeemed, strconv.FormatInt(t.SubjectID, 10), map[string]any{
		"purpose": string(purpose),
	}))

	return t, nil
}

func (s *ActionTokenService) uniqueValue(ctx context.Context) (string, error) {
	for i := 0; i < maxActionTokenAttempts; i++ {
		value, err := s.generate()
		if err != nil {
			return "", fmt.Errorf("generate action token: %w", err)
		}

		exists, err := s.store.Exists(ctx, value)
		if err != nil {
			return "", fmt.Errorf("check action token: %w", err)
		}
		if !exists {
			return value, nil
		}
	}

	return "", fmt.Errorf("generate action token: no unique value after %d attempts", maxActionTokenAttempts)
}

func (s *ActionTokenService) clock() time.Time {
	return s.now().In(s.loc)
}

func randomActionToken() (string, error) {
	buf := make([]byte, actionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
