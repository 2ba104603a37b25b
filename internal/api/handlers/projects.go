package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vkoval/docuchat/internal/project"
)

// ProjectCleaner is the slice of the document service used on project
// deletion.
type ProjectCleaner interface {
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

type ProjectHandler struct {
	svc  *project.Service
	docs ProjectCleaner
}

func NewProjectHandler(svc *project.Service, docs ProjectCleaner) *ProjectHandler {
	return &ProjectHandler{svc: svc, docs: docs}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}

	var ownerID uuid.UUID
	if u := project.UserFromContext(r.Context()); u != nil {
		ownerID = u.ID
	}

	p, err := h.svc.Create(r.Context(), req.Name, req.Slug, req.Description, ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 20)
	projects, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects, "count": len(projects)})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := project.FromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type updateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := project.FromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, description := p.Name, p.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	updated, err := h.svc.Update(r.Context(), p.ID, name, description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes the project and everything stored under it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := project.FromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	if err := h.docs.DeleteByProject(r.Context(), p.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), p.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Ctx resolves the {projectID} URL parameter, loads the project, and puts
// it on the request context. Every project-scoped route runs behind it.
func (h *ProjectHandler) Ctx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "projectID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid project ID")
			return
		}

		p, err := h.svc.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(project.WithProject(r.Context(), p)))
	})
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func currentUserID(r *http.Request) *uuid.UUID {
	if u := project.UserFromContext(r.Context()); u != nil {
		id := u.ID
		return &id
	}
	return nil
}
