package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/datatypes"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
)

type roleIn struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	out, err := h.roles.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid role id")
		return
	}
	role, err := h.roles.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "role not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	var in roleIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == nil {
		badRequest(w, "name is required")
		return
	}
	if !models.ValidRoleName(*in.Name) {
		badRequest(w, "invalid role name")
		return
	}
	role := models.Role{Name: *in.Name}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.Permissions != nil {
		raw, err := json.Marshal(in.Permissions)
		if err != nil {
			internalError(w, err)
			return
		}
		role.Permissions = datatypes.JSON(raw)
	}
	if err := h.roles.Create(r.Context(), &role); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			conflict(w, "role with this name already exists")
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &role)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid role id")
		return
	}
	role, err := h.roles.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "role not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	var in roleIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Name != nil {
		if !models.ValidRoleName(*in.Name) {
			badRequest(w, "invalid role name")
			return
		}
		role.Name = *in.Name
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.Permissions != nil {
		raw, err := json.Marshal(in.Permissions)
		if err != nil {
			internalError(w, err)
			return
		}
		role.Permissions = datatypes.JSON(raw)
	}
	if err := h.roles.Save(r.Context(), role); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid role id")
		return
	}
	if err := h.roles.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			notFound(w, "role not found")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
