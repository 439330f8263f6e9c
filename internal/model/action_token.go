package model

import "time"

type ActionPurpose string

const (
	PurposeEmailVerification ActionPurpose = "email_verification"
	PurposePasswordReset     ActionPurpose = "password_reset"
	PurposeResponseRating    ActionPurpose = "response_rating"
)

// TTL returns how long a freshly issued token of this purpose stays redeemable.
func (p ActionPurpose) TTL() time.Duration {
	switch p {
	case PurposeEmailVerification:
		return 6 * time.Hour
	case PurposePasswordReset:
		return 30 * time.Minute
	case PurposeResponseRating:
		return 7 * 24 * time.Hour
	}
	return 0
}

// ActionTokenRetention is how long stores keep a token past its expiry, so a
// late redemption reports ErrActionTokenExpired instead of not found.
const ActionTokenRetention = 24 * time.Hour

func (p ActionPurpose) Valid() bool {
	return p.TTL() > 0
}

// ActionToken is a random single-use value sent in email links. SubjectID is
// the user id for verification and reset tokens and the response id for
// rating tokens.
type ActionToken struct {
	Value     string        `json:"-"`
	Purpose   ActionPurpose `json:"purpose"`
	SubjectID int64         `json:"subject_id"`
	ExpiresAt time.Time     `json:"expires_at"`
	CreatedAt time.Time     `json:"created_at"`
}
