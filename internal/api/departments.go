package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
)

type departmentIn struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	out, err := h.depts.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid department id")
		return
	}
	d, err := h.depts.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "department not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	var in departmentIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == nil || *in.Name == "" {
		badRequest(w, "name is required")
		return
	}
	d := models.Department{Name: *in.Name}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if err := h.depts.Create(r.Context(), &d); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			conflict(w, "department with this name already exists")
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &d)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid department id")
		return
	}
	d, err := h.depts.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "department not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	var in departmentIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if err := h.depts.Save(r.Context(), d); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid department id")
		return
	}
	if err := h.depts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			notFound(w, "department not found")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
