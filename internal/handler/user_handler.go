package handler

import (
	"net/http"

	"tenant-auth-core/internal/middleware"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/service"
	"tenant-auth-core/internal/token"
	"tenant-auth-core/pkg/apierror"
)

type UserHandler struct {
	accounts accountManager
}

func NewUserHandler(accounts accountManager) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// Register creates a user in the customer named by the route. The route is
// tenant-guarded; only ADMIN callers may create another ADMIN.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	customerID, err := idParam(r, "customerID")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.RegisterUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	role := model.Role(payload.Role)
	if role == model.RoleAdmin {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok || !claims.Scope.Has(token.ScopeAdmin) {
			writeError(w, apierror.Forbidden("only administrators can create administrators", "role"))
			return
		}
	}

	profile, err := h.accounts.Register(r.Context(), customerID, service.RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Role:      role,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, profile)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}
