package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/service"
)

// AdminHandler handles the moderation endpoints. All routes here sit
// behind RequireAdmin.
type AdminHandler struct {
	profiles *service.ProfileService
	projects *service.ProjectService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(profiles *service.ProfileService, projects *service.ProjectService) *AdminHandler {
	return &AdminHandler{profiles: profiles, projects: projects}
}

// HandleListUsers returns every profile with its project count.
// GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	users, err := h.profiles.ListUsers(r.Context(), self)
	if err != nil {
		slog.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": toUserSummaryDTOs(users),
	})
}

// HandleToggleUserStatus flips a user between active and suspended.
// POST /api/admin/users/{id}/toggle-status
func (h *AdminHandler) HandleToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	profile, err := h.profiles.ToggleStatus(r.Context(), self, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("toggle user status", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileDTO(profile),
	})
}

// HandleToggleAdminRole grants or revokes a user's admin access.
// POST /api/admin/users/{id}/toggle-admin
func (h *AdminHandler) HandleToggleAdminRole(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	profile, err := h.profiles.ToggleAdmin(r.Context(), self, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("toggle admin role", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileDTO(profile),
	})
}

// HandleListProjects returns every listing regardless of status.
// GET /api/admin/projects
func (h *AdminHandler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	projects, err := h.projects.ListAll(r.Context(), self)
	if err != nil {
		slog.Error("list all projects", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": toProjectDTOs(projects),
	})
}

// HandleApproveProject transitions a listing to approved.
// POST /api/admin/projects/{id}/approve
func (h *AdminHandler) HandleApproveProject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.projects.Approve)
}

// HandleRejectProject transitions a listing to rejected.
// POST /api/admin/projects/{id}/reject
func (h *AdminHandler) HandleRejectProject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.projects.Reject)
}

// HandleToggleFeatured flips whether a listing is featured.
// POST /api/admin/projects/{id}/feature
func (h *AdminHandler) HandleToggleFeatured(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id.")
		return
	}

	project, err := h.projects.ToggleFeatured(r.Context(), self, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found.")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("toggle featured", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project": toProjectDTO(project),
	})
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actor *domain.Profile, id uuid.UUID) error) {
	self := ProfileFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id.")
		return
	}

	if err := action(r.Context(), self, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found.")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("moderate project", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
