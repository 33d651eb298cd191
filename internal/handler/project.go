package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/service"
)

// ProjectHandler handles project-listing HTTP requests.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// HandleBrowse returns approved listings, optionally filtered.
// GET /api/projects?category={c}&q={text}&featured=1
func (h *ProjectHandler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects, err := h.projects.Browse(r.Context(), q.Get("category"), q.Get("q"), q.Get("featured") == "1")
	if err != nil {
		slog.Error("browse projects", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": toProjectDTOs(projects),
	})
}

// HandleMine returns the caller's own listings, any status.
// GET /api/projects/mine
func (h *ProjectHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	projects, err := h.projects.Mine(r.Context(), self.ID)
	if err != nil {
		slog.Error("list own projects", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": toProjectDTOs(projects),
	})
}

// HandleGet returns one listing. Pending and rejected listings are only
// visible to their creator and to admins.
// GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id.")
		return
	}

	project, err := h.projects.Get(r.Context(), ProfileFromContext(r.Context()), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found.")
			return
		}
		slog.Error("get project", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project": toProjectDTO(project),
	})
}

// HandleSubmit creates a new listing for the caller.
// POST /api/projects
func (h *ProjectHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	var req struct {
		Title          string   `json:"title"`
		Description    string   `json:"description"`
		Category       string   `json:"category"`
		Location       string   `json:"location"`
		Budget         string   `json:"budget"`
		RequiredSkills []string `json:"requiredSkills"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	project, err := h.projects.Submit(r.Context(), self, service.ProjectInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Location:       req.Location,
		Budget:         req.Budget,
		RequiredSkills: req.RequiredSkills,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("submit project", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"project": toProjectDTO(project),
	})
}

// HandleDelete removes a listing. Allowed for the creator and admins.
// DELETE /api/projects/{id}
// Response: 204 No Content
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	self := ProfileFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id.")
		return
	}

	if err := h.projects.Delete(r.Context(), self, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found.")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			writeError(w, http.StatusForbidden, "You cannot delete this project.")
			return
		}
		slog.Error("delete project", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
