package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"tenant-auth-core/internal/middleware"
	"tenant-auth-core/internal/model"
	"tenant-auth-core/internal/service"
	"tenant-auth-core/internal/token"
	"tenant-auth-core/pkg/apierror"
)

type sessionIssuer interface {
	Login(ctx context.Context, kind model.PrincipalKind, identifier string, secret string) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

type accountManager interface {
	Register(ctx context.Context, customerID int64, in service.RegisterInput) (model.UserProfile, error)
	Profile(ctx context.Context, userID int64) (model.UserProfile, error)
	VerifyEmail(ctx context.Context, value string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, value string, newPassword string) error
}

type AuthHandler struct {
	sessions sessionIssuer
	accounts accountManager
}

func NewAuthHandler(sessions sessionIssuer, accounts accountManager) *AuthHandler {
	return &AuthHandler{sessions: sessions, accounts: accounts}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.sessions.Login(r.Context(), model.PrincipalUser, payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens)
}

// ClientToken is the client-credentials grant for service clients.
func (h *AuthHandler) ClientToken(w http.ResponseWriter, r *http.Request) {
	var payload model.ClientTokenRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.sessions.Login(r.Context(), model.PrincipalClient, payload.ClientID, payload.ClientSecret)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.RefreshToken = strings.TrimSpace(payload.RefreshToken)
	if payload.RefreshToken == "" {
		writeError(w, apierror.BadRequest("refresh_token is required", "refresh_token"))
		return
	}

	tokens, err := h.sessions.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrAuthenticationFailed)
		return
	}

	kind, id, err := token.ParseSubject(claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := model.MeResponse{
		Subject: claims.Subject,
		Kind:    string(kind),
		Scope:   claims.Scope.Slice(),
	}
	if claims.HasCustomer() {
		customerID := claims.CustomerID
		resp.CustomerID = &customerID
	}

	if kind == model.PrincipalUser {
		profile, err := h.accounts.Profile(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Profile = &profile
	}

	writeSuccess(w, http.StatusOK, resp)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var payload model.VerifyEmailRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), payload.Token); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"verified": true})
}

// RequestPasswordReset always answers 202 so the response does not reveal
// whether the address belongs to an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload model.PasswordResetRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		slog.Error("password reset request failed", "error", err.Error())
	}

	writeSuccess(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload model.PasswordResetConfirmRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), payload.Token, payload.Password); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"reset": true})
}
