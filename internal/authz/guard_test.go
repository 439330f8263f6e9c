package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/token"
)

func userClaims(id int64, customerID int64, role model.Role) token.Claims {
	return token.NewAccessClaims(model.UserPrincipal{ID: id, CustomerID: customerID, Role: role}, time.Now())
}

func TestAuthorize_TenantIsolation(t *testing.T) {
	t.Parallel()

	claims := userClaims(10, 1, model.RoleUser)

	require.NoError(t, Authorize(claims, ForTenant(1)))
	for _, other := range []int64{2, 3, 0, -1, 1 << 40} {
		require.ErrorIs(t, Authorize(claims, ForTenant(other)), model.ErrIdor, "tenant %d", other)
	}

	manager := userClaims(11, 1, model.RoleManager)
	require.NoError(t, Authorize(manager, ForTenant(1)))
	require.ErrorIs(t, Authorize(manager, ForTenant(2)), model.ErrIdor)
}

func TestAuthorize_Owner(t *testing.T) {
	t.Parallel()

	claims := userClaims(10, 1, model.RoleUser)

	require.NoError(t, Authorize(claims, ForOwner(10)))
	require.ErrorIs(t, Authorize(claims, ForOwner(11)), model.ErrIdor)

	// The owner check wins over a matching tenant.
	tenant := int64(1)
	owner := int64(11)
	require.ErrorIs(t, Authorize(claims, Target{TenantID: &tenant, OwnerID: &owner}), model.ErrIdor)
}

func TestAuthorize_PlatformBypass(t *testing.T) {
	t.Parallel()

	admin := userClaims(1, 1, model.RoleAdmin)
	require.NoError(t, Authorize(admin, ForTenant(99)))
	require.NoError(t, Authorize(admin, ForOwner(12345)))

	client := token.NewAccessClaims(model.ClientPrincipal{ID: 3, ClientID: "billing"}, time.Now())
	require.NoError(t, Authorize(client, ForTenant(2)))
	require.NoError(t, Authorize(client, ForOwner(77)))
}

func TestAuthorize_ScopeIsNotSubstringMatched(t *testing.T) {
	t.Parallel()

	claims := userClaims(10, 1, model.Role("ADMIN_VIEWER"))
	require.ErrorIs(t, Authorize(claims, ForTenant(2)), model.ErrIdor)
}

func TestAuthorize_RefreshTokenDenied(t *testing.T) {
	t.Parallel()

	refresh := token.NewRefreshClaims(model.UserPrincipal{ID: 10, CustomerID: 1, Role: model.RoleAdmin}, time.Now())

	require.ErrorIs(t, Authorize(refresh, ForTenant(1)), model.ErrIdor)
	require.ErrorIs(t, Authorize(refresh, ForOwner(10)), model.ErrIdor)
	require.ErrorIs(t, Authorize(refresh, Public()), model.ErrIdor)
}

func TestAuthorize_PublicTarget(t *testing.T) {
	t.Parallel()

	require.NoError(t, Authorize(userClaims(10, 1, model.RoleUser), Public()))
}

func TestAuthorize_ClientSubjectNeverOwnsUserResources(t *testing.T) {
	t.Parallel()

	claims := token.Claims{
		Subject:    "client:10",
		Scope:      token.NewScopeSet(token.ScopeUser),
		CustomerID: token.NoCustomer,
		Type:       token.TypeAccess,
	}
	require.ErrorIs(t, Authorize(claims, ForOwner(10)), model.ErrIdor)
	require.ErrorIs(t, Authorize(claims, ForTenant(1)), model.ErrIdor)
}
