//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersOnResponses(t *testing.T) {
	env := newTestEnv(t, 1000)
	pair := env.loginUser(t, adminEmail, adminPassword)

	resp := env.get(t, "/api/v1/auth/me", pair.AccessToken)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
}

func TestAuthRateLimitReturns429(t *testing.T) {
	env := newTestEnv(t, 2)

	for attempt := 0; attempt < 2; attempt++ {
		env.loginUser(t, adminEmail, adminPassword)
	}

	resp := env.postJSON(t, "/api/v1/auth/login", map[string]string{"email": adminEmail, "password": adminPassword}, "")
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, 1000)

	require.Equal(t, http.StatusOK, status(t, env.get(t, "/health", "")))
	require.Equal(t, http.StatusOK, status(t, env.get(t, "/metrics", "")))
}
