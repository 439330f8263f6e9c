package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/pii"
)

type BootstrapInput struct {
	CustomerName  string
	AdminEmail    string
	AdminPassword string
	ClientID      string
	ClientSecret  string
}

// Bootstrap seeds the platform customer and first admin on an empty user
// table, and the configured service client when it does not exist yet.
func Bootstrap(
	ctx context.Context,
	in BootstrapInput,
	users UserStore,
	customers CustomerStore,
	clients ClientStore,
	cipher *pii.FieldCipher,
	index *pii.BlindIndexer,
) error {
	if strings.TrimSpace(in.AdminEmail) != "" && in.AdminPassword != "" {
		if err := seedAdmin(ctx, in, users, customers, cipher, index); err != nil {
			return err
		}
	}

	if strings.TrimSpace(in.ClientID) != "" && in.ClientSecret != "" {
		if err := seedClient(ctx, in, clients); err != nil {
			return err
		}
	}

	return nil
}

func seedAdmin(ctx context.Context, in BootstrapInput, users UserStore, customers CustomerStore, cipher *pii.FieldCipher, index *pii.BlindIndexer) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := validatePassword(in.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}

	name := in.CustomerName
	if strings.TrimSpace(name) == "" {
		name = "platform"
	}
	customer, err := customers.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create bootstrap customer: %w", err)
	}

	email := pii.NormalizeEmail(in.AdminEmail)
	fields, err := cipher.EncryptAll(email, "", "")
	if err != nil {
		return fmt.Errorf("encrypt bootstrap admin: %w", err)
	}
	hash, err := HashSecret(in.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin, err := users.Create(ctx, model.User{
		CustomerID:     customer.ID,
		Email:          string(fields[0]),
		EmailIndex:     string(index.Hash(email)),
		FirstName:      string(fields[1]),
		LastName:       string(fields[2]),
		Role:           model.RoleAdmin,
		PasswordHash:   hash,
		AccountEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created", "user_id", admin.ID, "customer_id", customer.ID)
	return nil
}

func seedClient(ctx context.Context, in BootstrapInput, clients ClientStore) error {
	clientID := strings.TrimSpace(in.ClientID)
	_, err := clients.FindByClientID(ctx, clientID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrClientNotFound) {
		return fmt.Errorf("find bootstrap client: %w", err)
	}

	hash, err := HashSecret(in.ClientSecret)
	if err != nil {
		return err
	}

	created, err := clients.Create(ctx, model.Client{
		ClientID:   clientID,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create bootstrap client: %w", err)
	}

	slog.Info("bootstrap client created", "id", created.ID, "client_id", created.ClientID)
	return nil
}
