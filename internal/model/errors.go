package model

import "errors"

var (
	// Authentication errors. Callers never learn which part of a credential was wrong.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")

	// Token verification errors
	ErrTokenMalformed   = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")

	// Authorization errors
	ErrIdor = errors.New("access to resource of another tenant or owner denied")

	// Key material and field encryption errors
	ErrMissingKeyMaterial = errors.New("missing key material")
	ErrDecryptionFailed   = errors.New("decryption failed")

	// Action token errors
	ErrActionTokenNotFound = errors.New("action token not found")
	ErrActionTokenExpired  = errors.New("action token expired")

	// Resource errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrClientNotFound    = errors.New("client not found")
	ErrCustomerNotFound  = errors.New("customer not found")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
