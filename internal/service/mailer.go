package service

import (
	"context"
	"log/slog"

	"tenant-auth-core/internal/model"
)

// LogMailer records that a link would be sent. It stands in for the email
// delivery collaborator and logs neither the address nor the token value,
// so links issued while it is wired can never be redeemed.
type LogMailer struct{}

func (LogMailer) SendActionLink(_ context.Context, userID int64, _ string, t model.ActionToken) error {
	slog.Info("action link queued",
		"user_id", userID,
		"purpose", string(t.Purpose),
		"expires_at", t.ExpiresAt,
	)
	return nil
}
