package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/service"
)

// ProfileHandler handles profile HTTP requests.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// HandleGet returns another user's public profile.
// GET /api/profiles/{id}
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile id.")
		return
	}

	profile, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found.")
			return
		}
		slog.Error("get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toPublicProfileDTO(profile),
	})
}

// HandleUpdate updates the caller's own display name and avatar.
// PUT /api/profile
// Request: {"displayName":"...","avatarRef":"..."}
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	var req struct {
		DisplayName string  `json:"displayName"`
		AvatarRef   *string `json:"avatarRef"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	profile, err := h.profiles.UpdateOwn(r.Context(), self.ID, req.DisplayName, req.AvatarRef)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileDTO(profile),
	})
}
