package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tenant-auth-core/internal/model"
)

type ActionTokenRepository struct {
	pool *pgxpool.Pool
}

func NewActionTokenRepository(pool *pgxpool.Pool) *ActionTokenRepository {
	return &ActionTokenRepository{pool: pool}
}

func (r *ActionTokenRepository) Exists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM action_tokens WHERE value = $1)`, value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check action token exists: %w", err)
	}
	return exists, nil
}

func (r *ActionTokenRepository) Save(ctx context.Context, t model.ActionToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO action_tokens (value, purpose, subject_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.Value, t.Purpose, t.SubjectID, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("save action token: %w", err)
	}
	return nil
}

// Consume deletes and returns the token in one statement, so two concurrent
// redemptions cannot both succeed. A purpose mismatch leaves the row alone.
func (r *ActionTokenRepository) Consume(ctx context.Context, purpose model.ActionPurpose, value string) (model.ActionToken, error) {
	var t model.ActionToken
	err := r.pool.QueryRow(ctx,
		`DELETE FROM action_tokens WHERE value = $1 AND purpose = $2
		 RETURNING value, purpose, subject_id, expires_at, created_at`, value, purpose).
		Scan(&t.Value, &t.Purpose, &t.SubjectID, &t.ExpiresAt, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.ActionToken{}, model.ErrActionTokenNotFound
	}
	if err != nil {
		return model.ActionToken{}, fmt.Errorf("consume action token: %w", err)
	}
	return t, nil
}

// CleanExpired deletes tokens that expired before cutoff.
func (r *ActionTokenRepository) CleanExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM action_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean expired action tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
