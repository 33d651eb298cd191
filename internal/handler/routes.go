package handler

import (
	"net/http"

	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
	"github.com/wealthforge/network/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	db domain.Database,
	auth *service.AuthService,
	profiles *service.ProfileService,
	messages *service.MessageService,
	projects *service.ProjectService,
	broker feed.Broker,
	loginLimiter *service.RateLimiter,
	cookieSecure bool,
) {
	authHandler := NewAuthHandler(auth, loginLimiter, cookieSecure)
	profileHandler := NewProfileHandler(profiles)
	messageHandler := NewMessageHandler(messages, broker)
	projectHandler := NewProjectHandler(projects)
	adminHandler := NewAdminHandler(profiles, projects)

	mux.HandleFunc("GET /healthz", HandleHealthz(db))

	mux.HandleFunc("POST /api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/auth/me", RequireAuth(auth, http.HandlerFunc(authHandler.HandleMe)))

	mux.Handle("GET /api/profiles/{id}", RequireAuth(auth, http.HandlerFunc(profileHandler.HandleGet)))
	mux.Handle("PUT /api/profile", RequireAuth(auth, http.HandlerFunc(profileHandler.HandleUpdate)))

	mux.Handle("GET /api/messages", RequireAuth(auth, http.HandlerFunc(messageHandler.HandleList)))
	mux.Handle("POST /api/messages", RequireAuth(auth, http.HandlerFunc(messageHandler.HandleSend)))
	mux.Handle("POST /api/messages/{id}/read", RequireAuth(auth, http.HandlerFunc(messageHandler.HandleMarkRead)))
	mux.Handle("GET /api/messages/contacts", RequireAuth(auth, http.HandlerFunc(messageHandler.HandleContacts)))
	mux.Handle("GET /api/messages/ws", RequireAuth(auth, http.HandlerFunc(messageHandler.HandleFeed)))

	mux.Handle("GET /api/projects", OptionalAuth(auth, http.HandlerFunc(projectHandler.HandleBrowse)))
	mux.Handle("POST /api/projects", RequireAuth(auth, http.HandlerFunc(projectHandler.HandleSubmit)))
	mux.Handle("GET /api/projects/mine", RequireAuth(auth, http.HandlerFunc(projectHandler.HandleMine)))
	mux.Handle("GET /api/projects/{id}", OptionalAuth(auth, http.HandlerFunc(projectHandler.HandleGet)))
	mux.Handle("DELETE /api/projects/{id}", RequireAuth(auth, http.HandlerFunc(projectHandler.HandleDelete)))

	mux.Handle("GET /api/admin/users", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleListUsers)))
	mux.Handle("POST /api/admin/users/{id}/toggle-status", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleToggleUserStatus)))
	mux.Handle("POST /api/admin/users/{id}/toggle-admin", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleToggleAdminRole)))
	mux.Handle("GET /api/admin/projects", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleListProjects)))
	mux.Handle("POST /api/admin/projects/{id}/approve", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleApproveProject)))
	mux.Handle("POST /api/admin/projects/{id}/reject", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleRejectProject)))
	mux.Handle("POST /api/admin/projects/{id}/feature", RequireAdmin(auth, http.HandlerFunc(adminHandler.HandleToggleFeatured)))
}
