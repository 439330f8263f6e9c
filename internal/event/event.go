package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLoginSucceeded      Type = "auth.login_succeeded"
	TypeLoginFailed         Type = "auth.login_failed"
	TypeTokenRefreshed      Type = "auth.token_refreshed"
	TypeRefreshRejected     Type = "auth.refresh_rejected"
	TypeAccessDenied        Type = "authz.access_denied"
	TypeActionTokenIssued   Type = "action_token.issued"
	TypeActionTokenRedeemed Type = "action_token.redeemed"
	TypeUserRegistered      Type = "user.registered"
	TypePasswordReset       Type = "user.password_reset"
	TypeResponseRated       Type = "rating.recorded"
)

// Event is a security-relevant occurrence. Payload never carries secrets,
// token values or plaintext personal data.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id,omitempty"`
}

func New(t Type, actorID string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
