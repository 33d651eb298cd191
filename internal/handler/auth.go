package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth         *service.AuthService
	loginLimiter *service.RateLimiter
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, loginLimiter *service.RateLimiter, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, loginLimiter: loginLimiter, cookieSecure: cookieSecure}
}

// HandleRegister processes a JSON registration request.
// POST /api/auth/register
// Request:  {"email":"...","displayName":"...","password":"..."}
// Response: {"profile": {...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	profile, err := h.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "An account with that email already exists.")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("register profile", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"profile": toProfileDTO(profile),
	})
}

// HandleLogin processes a JSON login request. Attempts are rate limited
// per client address.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."}
// Response: {"profile": {...}, "token": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.loginLimiter != nil && !h.loginLimiter.Allow(clientAddr(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait and try again.")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	token, profile, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		slog.Error("login profile", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileDTO(profile),
		"token":   token,
	})
}

// HandleLogout clears the auth cookie.
// POST /api/auth/logout
// Response: 204 No Content
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated profile.
// GET /api/auth/me
// Response: {"profile": {...}}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile := ProfileFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileDTO(profile),
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
