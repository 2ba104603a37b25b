package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vkoval/docuchat/internal/admin"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/project"
)

type AdminHandler struct {
	svc *admin.Service
}

func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// --- users ---

type createUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		writeError(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	u, err := h.svc.CreateUser(r.Context(), req.Email, req.FullName, req.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.audit(r, "user.create", u.ID.String(), req.Email)
	writeJSON(w, http.StatusCreated, u)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	users, err := h.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

type updateUserRequest struct {
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(pathID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleMember {
			writeError(w, http.StatusBadRequest, "role must be admin or member")
			return
		}
		if err := h.svc.SetUserRole(r.Context(), id, *req.Role); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.audit(r, "user.set_role", id.String(), *req.Role)
	}
	if req.Active != nil {
		if err := h.svc.SetUserActive(r.Context(), id, *req.Active); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.audit(r, "user.set_active", id.String(), "")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// --- provider credentials ---

type upsertCredentialRequest struct {
	Provider     string `json:"provider"`
	Label        string `json:"label"`
	APIKey       string `json:"api_key"`
	DefaultModel string `json:"default_model"`
}

func (h *AdminHandler) UpsertCredential(w http.ResponseWriter, r *http.Request) {
	var req upsertCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" || req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "provider and api_key are required")
		return
	}

	cred, err := h.svc.UpsertCredential(r.Context(), req.Provider, req.Label, req.APIKey, req.DefaultModel)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.audit(r, "credential.upsert", req.Provider, req.Label)
	writeJSON(w, http.StatusOK, cred)
}

func (h *AdminHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.svc.ListCredentials(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"credentials": creds, "count": len(creds)})
}

func (h *AdminHandler) DeactivateCredential(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if err := h.svc.DeactivateCredential(r.Context(), provider); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.audit(r, "credential.deactivate", provider, "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// --- platform settings ---

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}

func (h *AdminHandler) SetSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := decodeJSON(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	var updatedBy string
	if u := project.UserFromContext(r.Context()); u != nil {
		updatedBy = u.ID.String()
	}

	for key, value := range updates {
		if err := h.svc.SetSetting(r.Context(), key, value, updatedBy); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.audit(r, "settings.update", key, value)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// --- activity ---

func (h *AdminHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	entries, err := h.svc.ListActivity(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": entries, "count": len(entries)})
}

func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (h *AdminHandler) audit(r *http.Request, action, target, detail string) {
	var userID string
	if u := project.UserFromContext(r.Context()); u != nil {
		userID = u.ID.String()
	}
	h.svc.LogActivity(r.Context(), userID, action, target, detail)
}
