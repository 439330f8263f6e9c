package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tenant-auth-core/internal/model"
)

// Issuer is the only issuer this service trusts.
const Issuer = "tenant-auth-core"

const (
	AccessTTL  = time.Hour
	RefreshTTL = 48 * time.Hour
)

// NoCustomer marks claims that carry no tenant (clients and refresh tokens).
const NoCustomer int64 = -1

const clientSubjectPrefix = "client:"

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the verified, immutable payload of a token.
type Claims struct {
	Issuer     string
	Subject    string
	Role       model.Role
	Scope      ScopeSet
	CustomerID int64
	Type       Type
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

func (c Claims) HasCustomer() bool {
	return c.CustomerID != NoCustomer
}

// UserID returns the numeric user id when the subject names a user.
func (c Claims) UserID() (int64, bool) {
	kind, id, err := ParseSubject(c.Subject)
	if err != nil || kind != model.PrincipalUser {
		return 0, false
	}
	return id, true
}

// NewAccessClaims computes access claims from the principal's current state.
func NewAccessClaims(p model.Principal, now time.Time) Claims {
	claims := Claims{
		Issuer:     Issuer,
		Subject:    SubjectFor(p),
		Scope:      ScopesFor(p),
		CustomerID: NoCustomer,
		Type:       TypeAccess,
		IssuedAt:   now,
		ExpiresAt:  now.Add(AccessTTL),
	}

	if user, ok := p.(model.UserPrincipal); ok {
		claims.Role = user.Role
		claims.CustomerID = user.CustomerID
	}

	return claims
}

// NewRefreshClaims carries only the subject. Role, scope and tenant are
// recomputed from the principal when the refresh token is exchanged.
func NewRefreshClaims(p model.Principal, now time.Time) Claims {
	return Claims{
		Issuer:     Issuer,
		Subject:    SubjectFor(p),
		Scope:      NewScopeSet(),
		CustomerID: NoCustomer,
		Type:       TypeRefresh,
		IssuedAt:   now,
		ExpiresAt:  now.Add(RefreshTTL),
	}
}

// SubjectFor encodes users as "<id>" and clients as "client:<id>".
func SubjectFor(p model.Principal) string {
	switch v := p.(type) {
	case model.UserPrincipal:
		return strconv.FormatInt(v.ID, 10)
	case model.ClientPrincipal:
		return clientSubjectPrefix + strconv.FormatInt(v.ID, 10)
	}
	return ""
}

func ParseSubject(sub string) (model.PrincipalKind, int64, error) {
	kind := model.PrincipalUser
	raw := sub
	if rest, ok := strings.CutPrefix(sub, clientSubjectPrefix); ok {
		kind = model.PrincipalClient
		raw = rest
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: subject %q", model.ErrTokenMalformed, sub)
	}

	return kind, id, nil
}
