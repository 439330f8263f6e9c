//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenant-auth-core/internal/config"
	"tenant-auth-core/internal/database"
	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/handler"
	"tenant-auth-core/internal/keystore"
	"tenant-auth-core/internal/middleware"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/pii"
	"tenant-auth-core/internal/repository"
	"tenant-auth-core/internal/router"
	"tenant-auth-core/internal/service"
	"tenant-auth-core/internal/token"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "bootstrap-password"
	clientID      = "reporting"
	clientSecret  = "reporting-secret"
)

// capturingMailer keeps the last link sent per address so tests can follow it.
type capturingMailer struct {
	mu    sync.Mutex
	links map[string]model.ActionToken
}

func (m *capturingMailer) SendActionLink(_ context.Context, _ int64, email string, t model.ActionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[email] = t
	return nil
}

func (m *capturingMailer) last(t *testing.T, email string) model.ActionToken {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[email]
	require.True(t, ok, "no link sent to %s", email)
	return link
}

type testEnv struct {
	server   *httptest.Server
	mailer   *capturingMailer
	accounts *service.AccountService
}

// newTestEnv wires the full router against the database in TEST_DATABASE_URL.
// Tables are truncated first, so tests in this package must not run in parallel.
func newTestEnv(t *testing.T, authRPM int) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Options{URL: databaseURL, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.Pool.Exec(ctx, `TRUNCATE ratings, action_tokens, users, clients, customers RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	material, _, err := keystore.Generate(2048)
	require.NoError(t, err)
	cipher, err := pii.NewFieldCipher(material.AESKey)
	require.NoError(t, err)
	index := pii.NewBlindIndexer(material.HMACKey)
	codec := token.NewCodec(material)

	users := repository.NewUserRepository(db.Pool)
	clients := repository.NewClientRepository(db.Pool)
	customers := repository.NewCustomerRepository(db.Pool)

	require.NoError(t, service.Bootstrap(ctx, service.BootstrapInput{
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		ClientID:      clientID,
		ClientSecret:  clientSecret,
	}, users, customers, clients, cipher, index))

	bus := event.Discard{}
	mailer := &capturingMailer{links: map[string]model.ActionToken{}}
	credentials := service.NewCredentialService(users, clients, index)
	sessions := service.NewSessionService(credentials, codec, bus)
	actions := service.NewActionTokenService(repository.NewActionTokenRepository(db.Pool), time.UTC, bus)
	accounts := service.NewAccountService(users, customers, cipher, index, actions, mailer, bus)
	ratings := service.NewRatingService(repository.NewRatingRepository(db.Pool), actions, bus)

	cfg := &config.Config{
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: authRPM,
		RequestTimeout:   10 * time.Second,
	}

	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(codec, bus), router.Handlers{
		Auth:   handler.NewAuthHandler(sessions, accounts),
		User:   handler.NewUserHandler(accounts),
		Rating: handler.NewRatingHandler(ratings),
		Health: db.Health,
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, mailer: mailer, accounts: accounts}
}

type tokenResponse struct {
	Success bool            `json:"success"`
	Data    model.TokenPair `json:"data"`
}

func (e *testEnv) login(t *testing.T, path string, payload map[string]string) model.TokenPair {
	t.Helper()

	resp := e.postJSON(t, path, payload, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	require.NotEmpty(t, parsed.Data.AccessToken)
	return parsed.Data
}

func (e *testEnv) loginUser(t *testing.T, email string, password string) model.TokenPair {
	t.Helper()
	return e.login(t, "/api/v1/auth/login", map[string]string{"email": email, "password": password})
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any, accessToken string) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func status(t *testing.T, resp *http.Response) int {
	t.Helper()
	_ = resp.Body.Close()
	return resp.StatusCode
}
