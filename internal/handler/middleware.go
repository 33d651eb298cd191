package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/service"
)

type contextKey string

const profileContextKey contextKey = "profile"

// ProfileFromContext extracts the authenticated profile from the
// request context. Returns nil if no profile is authenticated.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	profile, _ := ctx.Value(profileContextKey).(*domain.Profile)
	return profile
}

// RequireAuth is middleware that protects routes requiring
// authentication. It accepts the auth_token cookie or an Authorization
// bearer header, validates the JWT, loads the profile, and injects it
// into the request context. Returns 401 for unauthenticated requests
// and 403 for suspended accounts.
func RequireAuth(auth *service.AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, err := authenticateRequest(r, auth)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if profile.Status == domain.ProfileStatusSuspended {
			http.Error(w, "Account suspended", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), profileContextKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth is middleware that attempts to authenticate but does not
// block unauthenticated requests. If a valid token is present, the
// profile is injected into context; otherwise the request proceeds
// without one.
func OptionalAuth(auth *service.AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, err := authenticateRequest(r, auth)
		if err == nil && profile != nil && profile.Status != domain.ProfileStatusSuspended {
			ctx := context.WithValue(r.Context(), profileContextKey, profile)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin wraps RequireAuth and additionally requires the admin
// flag on the stored profile.
func RequireAdmin(auth *service.AuthService, next http.Handler) http.Handler {
	return RequireAuth(auth, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if profile := ProfileFromContext(r.Context()); profile == nil || !profile.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func authenticateRequest(r *http.Request, auth *service.AuthService) (*domain.Profile, error) {
	token, err := tokenFromRequest(r)
	if err != nil {
		return nil, err
	}

	profileID, err := auth.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	return auth.GetProfileByID(r.Context(), profileID)
}

func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token, nil
		}
	}
	cookie, err := r.Cookie("auth_token")
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// SecurityHeaders adds standard security response headers to every
// request.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
