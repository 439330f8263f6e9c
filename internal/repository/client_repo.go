package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tenant-auth-core/internal/model"
)

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) FindByID(ctx context.Context, id int64) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, client_id, secret_hash, created_at FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.ClientID, &c.SecretHash, &c.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Client{}, model.ErrClientNotFound
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("find client by id: %w", err)
	}
	return c, nil
}

func (r *ClientRepository) FindByClientID(ctx context.Context, clientID string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, client_id, secret_hash, created_at FROM clients WHERE client_id = $1`, clientID).
		Scan(&c.ID, &c.ClientID, &c.SecretHash, &c.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Client{}, model.ErrClientNotFound
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("find client by client id: %w", err)
	}
	return c, nil
}

func (r *ClientRepository) Create(ctx context.Context, c model.Client) (model.Client, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clients (client_id, secret_hash, created_at) VALUES ($1, $2, $3) RETURNING id`,
		c.ClientID, c.SecretHash, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return model.Client{}, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}
