package service

import (
	"context"

	"tenant-auth-core/internal/model"
)

// UserStore is the persistence collaborator for users. Lookups by email go
// through the blind index; plaintext email never reaches the store.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmailIndex(ctx context.Context, emailIndex string) (model.User, error)
	ExistsByEmailIndex(ctx context.Context, emailIndex string) (bool, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type ClientStore interface {
	FindByID(ctx context.Context, id int64) (model.Client, error)
	FindByClientID(ctx context.Context, clientID string) (model.Client, error)
	Create(ctx context.Context, c model.Client) (model.Client, error)
}

type CustomerStore interface {
	Create(ctx context.Context, name string) (model.Customer, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// ActionTokenStore persists action tokens. Consume removes and returns the
// token atomically so that a value can be redeemed at most once; a purpose
// mismatch leaves the token in place and reports model.ErrActionTokenNotFound.
type ActionTokenStore interface {
	Exists(ctx context.Context, value string) (bool, error)
	Save(ctx context.Context, t model.ActionToken) error
	Consume(ctx context.Context, purpose model.ActionPurpose, value string) (model.ActionToken, error)
}

// Mailer delivers action links. Composition and transport live outside the core.
type Mailer interface {
	SendActionLink(ctx context.Context, userID int64, email string, t model.ActionToken) error
}

type RatingStore interface {
	Create(ctx context.Context, r model.Rating) (model.Rating, error)
}
