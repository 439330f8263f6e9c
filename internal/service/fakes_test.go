package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/keystore"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/pii"
	"tenant-auth-core/internal/token"
)

var testMaterial = sync.OnceValue(func() *keystore.Material {
	material, _, err := keystore.Generate(2048)
	if err != nil {
		panic(err)
	}
	return material
})

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]model.User{}}
}

func (m *memUsers) FindByID(_ context.Context, id int64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmailIndex(_ context.Context, emailIndex string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.EmailIndex == emailIndex {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memUsers) ExistsByEmailIndex(ctx context.Context, emailIndex string) (bool, error) {
	_, err := m.FindByEmailIndex(ctx, emailIndex)
	return err == nil, nil
}

func (m *memUsers) Create(_ context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		for id := range m.byID {
			m.nextID = max(m.nextID, id)
		}
		m.nextID++
		u.ID = m.nextID
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) SetEnabled(_ context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.AccountEnabled = enabled
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.byID[id] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

type memClients struct {
	mu   sync.Mutex
	byID map[int64]model.Client
}

func newMemClients() *memClients {
	return &memClients{byID: map[int64]model.Client{}}
}

func (m *memClients) FindByID(_ context.Context, id int64) (model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return model.Client{}, model.ErrClientNotFound
	}
	return c, nil
}

func (m *memClients) FindByClientID(_ context.Context, clientID string) (model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.ClientID == clientID {
			return c, nil
		}
	}
	return model.Client{}, model.ErrClientNotFound
}

func (m *memClients) Create(_ context.Context, c model.Client) (model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = int64(len(m.byID) + 1)
	}
	m.byID[c.ID] = c
	return c, nil
}

type memCustomers struct {
	mu  sync.Mutex
	ids map[int64]string
}

func newMemCustomers(ids ...int64) *memCustomers {
	m := &memCustomers{ids: map[int64]string{}}
	for _, id := range ids {
		m.ids[id] = "customer"
	}
	return m
}

func (m *memCustomers) Create(_ context.Context, name string) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.ids) + 1)
	m.ids[id] = name
	return model.Customer{ID: id, Name: name}, nil
}

func (m *memCustomers) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok, nil
}

type memActionTokens struct {
	mu     sync.Mutex
	tokens map[string]model.ActionToken
	exists func(value string) bool
}

func newMemActionTokens() *memActionTokens {
	return &memActionTokens{tokens: map[string]model.ActionToken{}}
}

func (m *memActionTokens) Exists(_ context.Context, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exists != nil && m.exists(value) {
		return true, nil
	}
	_, ok := m.tokens[value]
	return ok, nil
}

func (m *memActionTokens) Save(_ context.Context, t model.ActionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Value] = t
	return nil
}

func (m *memActionTokens) Consume(_ context.Context, purpose model.ActionPurpose, value string) (model.ActionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[value]
	if !ok || t.Purpose != purpose {
		return model.ActionToken{}, model.ErrActionTokenNotFound
	}
	delete(m.tokens, value)
	return t, nil
}

func (m *memActionTokens) CleanExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for value, t := range m.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(m.tokens, value)
			removed++
		}
	}
	return removed, nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendActionLink(ctx context.Context, userID int64, email string, t model.ActionToken) error {
	args := m.Called(ctx, userID, email, t)
	return args.Error(0)
}

type harness struct {
	users     *memUsers
	clients   *memClients
	customers *memCustomers
	tokens    *memActionTokens
	cipher    *pii.FieldCipher
	index     *pii.BlindIndexer
	codec     *token.Codec
	creds     *CredentialService
	sessions  *SessionService
	actions   *ActionTokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cipher, err := pii.NewFieldCipher(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)

	h := &harness{
		users:     newMemUsers(),
		clients:   newMemClients(),
		customers: newMemCustomers(1, 2),
		tokens:    newMemActionTokens(),
		cipher:    cipher,
		index:     pii.NewBlindIndexer(bytes.Repeat([]byte{2}, 32)),
		codec:     token.NewCodec(testMaterial()),
	}
	h.creds = NewCredentialService(h.users, h.clients, h.index)
	h.sessions = NewSessionService(h.creds, h.codec, event.Discard{})
	h.actions = NewActionTokenService(h.tokens, time.UTC, event.Discard{})

	return h
}

func (h *harness) addUser(t *testing.T, id int64, customerID int64, email string, password string, role model.Role) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	encrypted, err := h.cipher.Encrypt(pii.NormalizeEmail(email))
	require.NoError(t, err)
	empty, err := h.cipher.Encrypt("")
	require.NoError(t, err)

	u, err := h.users.Create(context.Background(), model.User{
		ID:             id,
		CustomerID:     customerID,
		Email:          string(encrypted),
		EmailIndex:     string(h.index.HashEmail(email)),
		FirstName:      string(empty),
		LastName:       string(empty),
		Role:           role,
		PasswordHash:   string(hash),
		AccountEnabled: true,
	})
	require.NoError(t, err)
	return u
}

func (h *harness) addClient(t *testing.T, id int64, clientID string, secret string) model.Client {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	c, err := h.clients.Create(context.Background(), model.Client{ID: id, ClientID: clientID, SecretHash: string(hash)})
	require.NoError(t, err)
	return c
}
