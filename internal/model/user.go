package model

import "time"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalClient PrincipalKind = "client"
)

// Principal is the authenticated identity behind a request. The only
// implementations are UserPrincipal and ClientPrincipal; callers type-switch
// on the concrete value instead of asserting a single variant.
type Principal interface {
	Kind() PrincipalKind
	principal()
}

// UserPrincipal is an end-user scoped to exactly one customer.
type UserPrincipal struct {
	ID             int64
	CustomerID     int64
	Role           Role
	PasswordHash   string
	AccountEnabled bool
	AccountLocked  bool
}

func (UserPrincipal) Kind() PrincipalKind { return PrincipalUser }
func (UserPrincipal) principal()          {}

// ClientPrincipal is a service client acting for the whole platform.
type ClientPrincipal struct {
	ID         int64
	ClientID   string
	SecretHash string
}

func (ClientPrincipal) Kind() PrincipalKind { return PrincipalClient }
func (ClientPrincipal) principal()          {}

// User is the persisted user row. Email and names are stored encrypted;
// EmailIndex is the blind index of the normalized email.
type User struct {
	ID             int64     `json:"id"`
	CustomerID     int64     `json:"customer_id"`
	Email          string    `json:"-"`
	EmailIndex     string    `json:"-"`
	FirstName      string    `json:"-"`
	LastName       string    `json:"-"`
	Role           Role      `json:"role"`
	PasswordHash   string    `json:"-"`
	AccountEnabled bool      `json:"account_enabled"`
	AccountLocked  bool      `json:"account_locked"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u User) Principal() UserPrincipal {
	return UserPrincipal{
		ID:             u.ID,
		CustomerID:     u.CustomerID,
		Role:           u.Role,
		PasswordHash:   u.PasswordHash,
		AccountEnabled: u.AccountEnabled,
		AccountLocked:  u.AccountLocked,
	}
}

type Client struct {
	ID         int64     `json:"id"`
	ClientID   string    `json:"client_id"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c Client) Principal() ClientPrincipal {
	return ClientPrincipal{ID: c.ID, ClientID: c.ClientID, SecretHash: c.SecretHash}
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the decrypted view of a user returned to its owner.
type UserProfile struct {
	ID             int64  `json:"id"`
	CustomerID     int64  `json:"customer_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Role           Role   `json:"role"`
	AccountEnabled bool   `json:"account_enabled"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
