package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tenant-auth-core/internal/authz"
	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/token"
)

type tokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	verifier tokenVerifier
	bus      event.Bus
}

func NewAuthMiddleware(verifier tokenVerifier, bus event.Bus) *AuthMiddleware {
	if bus == nil {
		bus = event.Discard{}
	}
	return &AuthMiddleware{verifier: verifier, bus: bus}
}

// RequireAuth accepts only access tokens. Refresh tokens are rejected here
// even though they carry a valid signature.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		raw := strings.TrimSpace(header[7:])
		claims, err := m.verifier.Verify(raw)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, model.ErrTokenExpired) {
				message = "token expired"
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
			return
		}
		if claims.Type != token.TypeAccess {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "access token required")
			return
		}

		if info := requestInfoFrom(r.Context()); info != nil {
			info.setSubject(claims.Subject)
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireScope lets the request through when the token holds any of scopes.
func (m *AuthMiddleware) RequireScope(scopes ...token.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if !claims.Scope.HasAny(scopes...) {
				m.denied(r, claims, "scope")
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant guards routes whose URL parameter param names a customer id.
func (m *AuthMiddleware) RequireTenant(param string) func(http.Handler) http.Handler {
	return m.guard(param, authz.ForTenant)
}

// RequireOwner guards routes whose URL parameter param names a user id.
func (m *AuthMiddleware) RequireOwner(param string) func(http.Handler) http.Handler {
	return m.guard(param, authz.ForOwner)
}

func (m *AuthMiddleware) guard(param string, target func(int64) authz.Target) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil || id <= 0 {
				writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+param)
				return
			}

			if err := authz.Authorize(claims, target(id)); err != nil {
				m.denied(r, claims, param)
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) denied(r *http.Request, claims token.Claims, check string) {
	m.bus.Publish(event.New(event.TypeAccessDenied, claims.Subject, map[string]any{
		"check":  check,
		"method": r.Method,
		"path":   r.URL.Path,
	}))
}

func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(token.Claims)
	return claims, ok
}

// WithClaims returns a context carrying claims, as RequireAuth does.
func WithClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}
