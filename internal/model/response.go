package model

import "time"

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MeResponse describes the caller. Profile is only set for users.
type MeResponse struct {
	Subject    string       `json:"subject"`
	Kind       string       `json:"kind"`
	Scope      []string     `json:"scope"`
	CustomerID *int64       `json:"customer_id,omitempty"`
	Profile    *UserProfile `json:"profile,omitempty"`
}

// RatingLinkResponse carries the raw token once, to the caller that sends
// the link.
type RatingLinkResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
