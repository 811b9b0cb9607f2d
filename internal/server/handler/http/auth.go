// Package http provides the JSON REST API of the HeroKeeper service.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
	"github.com/atinyakov/HeroKeeper/internal/service"
)

// AuthService defines the authentication operations required by the
// HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, *auth.Issued, error)
	Login(ctx context.Context, username, password string) (*models.User, *auth.Issued, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, userID models.ID) (*models.User, error)
}

// AuthHandler handles registration, login, logout and the current user.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
	// SecureCookies marks the session cookie Secure. Set in production.
	SecureCookies bool
}

// LoginRequest is the JSON payload of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and starts a session for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(w, r, MaxJSONBody, &req); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	user, issued, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	auth.SetCookie(w, issued.Token, issued.ExpiresAt, h.SecureCookies)
	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, MaxJSONBody, &req); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	user, issued, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	auth.SetCookie(w, issued.Token, issued.ExpiresAt, h.SecureCookies)
	writeJSON(w, http.StatusOK, user)
}

// Logout ends the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	auth.ClearCookie(w, h.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// User returns the authenticated principal.
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(h.Log, w, r, apperr.ErrUnauthenticated)
		return
	}
	user, err := h.AuthService.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
