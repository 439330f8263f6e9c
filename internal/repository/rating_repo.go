package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"tenant-auth-core/internal/model"
)

type RatingRepository struct {
	pool *pgxpool.Pool
}

func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

func (r *RatingRepository) Create(ctx context.Context, rating model.Rating) (model.Rating, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ratings (response_id, score, comment, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		rating.ResponseID, rating.Score, rating.Comment, rating.CreatedAt).Scan(&rating.ID)
	if err != nil {
		return model.Rating{}, fmt.Errorf("create rating: %w", err)
	}
	return rating, nil
}
