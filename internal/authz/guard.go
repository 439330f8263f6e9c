// Package authz decides whether verified claims may touch a tenant- or
// owner-scoped resource. Every handler reading or mutating such data calls
// Authorize before reaching persistence.
package authz

import (
	"fmt"
	"strconv"

	"tenant-auth-core/internal/metrics"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/token"
)

// Target names the tenant and/or owner of the requested resource. A nil
// field means that check does not apply.
type Target struct {
	TenantID *int64
	OwnerID  *int64
}

func ForTenant(tenantID int64) Target {
	return Target{TenantID: &tenantID}
}

func ForOwner(ownerID int64) Target {
	return Target{OwnerID: &ownerID}
}

// Public is the target of self-describing endpoints with no tenant or owner.
func Public() Target {
	return Target{}
}

// Authorize returns nil when claims may access target, otherwise an error
// wrapping model.ErrIdor.
//
// ADMIN and CLIENT scopes bypass tenant and owner checks. Otherwise the owner
// check takes precedence over the tenant check. Only access tokens are ever
// authorized.
func Authorize(claims token.Claims, target Target) error {
	if claims.Type != token.TypeAccess {
		return deny("token_type", "%w: %s token cannot access resources", model.ErrIdor, claims.Type)
	}

	if claims.Scope.HasAny(token.ScopeAdmin, token.ScopeClient) {
		return nil
	}

	if target.OwnerID != nil {
		subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || subjectID != *target.OwnerID {
			return deny("owner", "%w: owner mismatch", model.ErrIdor)
		}
		return nil
	}

	if target.TenantID != nil {
		if !claims.HasCustomer() || claims.CustomerID != *target.TenantID {
			return deny("tenant", "%w: tenant mismatch", model.ErrIdor)
		}
		return nil
	}

	return nil
}

func deny(check string, format string, args ...any) error {
	metrics.AuthorizationDenied.WithLabelValues(check).Inc()
	return fmt.Errorf(format, args...)
}
