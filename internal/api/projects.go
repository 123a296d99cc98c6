package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
)

type projectIn struct {
	Name         *string  `json:"name"`
	Key          *string  `json:"key"`
	Description  *string  `json:"description"`
	Status       *string  `json:"status"`
	Priority     *string  `json:"priority"`
	StartDate    *dateIn  `json:"start_date"`
	EndDate      *dateIn  `json:"end_date"`
	Budget       *float64 `json:"budget"`
	Progress     *int     `json:"progress"`
	OwnerID      *uint    `json:"owner_id"`
	DepartmentID *uint    `json:"department_id"`
	IsTemplate   *bool    `json:"is_template"`
	IsPublic     *bool    `json:"is_public"`
}

// GET /projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	out, err := h.projects.List(r.Context(), auth.CurrentUser(r))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /projects — operations lead либо стафф.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	if !operationsLeadOrStaff(cur) {
		forbidden(w, "only operations leads and staff members can create projects")
		return
	}
	var in projectIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Name == nil || *in.Name == "" || in.Key == nil || *in.Key == "" {
		badRequest(w, "name and key are required")
		return
	}

	p := models.Project{
		Name:        *in.Name,
		Key:         *in.Key,
		Status:      models.ProjectStatusDraft,
		Priority:    models.PriorityMedium,
		CreatedByID: &cur.ID,
		OwnerID:     &cur.ID,
	}
	if !applyProjectPatch(w, &p, &in) {
		return
	}

	if err := h.projects.Create(r.Context(), &p); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			conflict(w, "project with this key already exists")
			return
		}
		internalError(w, err)
		return
	}
	// создатель сразу становится админом проекта
	if _, err := h.projects.AddMember(r.Context(), p.ID, cur.ID, models.MemberRoleAdmin); err != nil && !errors.Is(err, repo.ErrConflict) {
		internalError(w, err)
		return
	}
	created, err := h.projects.Get(r.Context(), p.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// applyProjectPatch применяет частичный ввод; false — ответ уже записан.
func applyProjectPatch(w http.ResponseWriter, p *models.Project, in *projectIn) bool {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Key != nil {
		p.Key = *in.Key
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		if !models.ValidProjectStatus(*in.Status) {
			badRequest(w, "invalid status")
			return false
		}
		p.Status = *in.Status
	}
	if in.Priority != nil {
		if !models.ValidPriority(*in.Priority) {
			badRequest(w, "invalid priority")
			return false
		}
		p.Priority = *in.Priority
	}
	if in.StartDate != nil {
		p.StartDate = in.StartDate.ptr()
	}
	if in.EndDate != nil {
		p.EndDate = in.EndDate.ptr()
	}
	if in.Budget != nil {
		p.Budget = in.Budget
	}
	if in.Progress != nil {
		if *in.Progress < 0 || *in.Progress > 100 {
			badRequest(w, "progress must be between 0 and 100")
			return false
		}
		p.Progress = *in.Progress
	}
	if in.OwnerID != nil {
		p.OwnerID = in.OwnerID
	}
	if in.DepartmentID != nil {
		p.DepartmentID = in.DepartmentID
	}
	if in.IsTemplate != nil {
		p.IsTemplate = *in.IsTemplate
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	return true
}

// GET /projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	p, err := h.projects.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "project not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	visible, err := h.canSeeProject(r.Context(), cur, p)
	if err != nil {
		internalError(w, err)
		return
	}
	if !visible {
		forbidden(w, "you do not have access to this project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PUT /projects/{id} — стафф либо участник-админ.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	allowed, err := h.canManageProject(r.Context(), cur, id)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "you do not have permission to modify this project")
		return
	}
	p, err := h.projects.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "project not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	var in projectIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !applyProjectPatch(w, p, &in) {
		return
	}
	if err := h.projects.Save(r.Context(), p); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DELETE /projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	allowed, err := h.canManageProject(r.Context(), cur, id)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "you do not have permission to delete this project")
		return
	}
	if err := h.projects.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			notFound(w, "project not found")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberIn struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// POST /projects/{id}/members
func (h *Handler) AddProjectMember(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	allowed, err := h.canManageProject(r.Context(), cur, id)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "you do not have permission to manage project members")
		return
	}

	var in memberIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserID == 0 {
		badRequest(w, "user_id is required")
		return
	}
	if in.Role == "" {
		in.Role = models.MemberRoleMember
	}
	if !models.ValidMemberRole(in.Role) {
		badRequest(w, "invalid member role")
		return
	}
	if _, err := h.users.ByID(r.Context(), in.UserID); errors.Is(err, repo.ErrNotFound) {
		notFound(w, "user not found")
		return
	}
	if _, err := h.projects.Get(r.Context(), id); errors.Is(err, repo.ErrNotFound) {
		notFound(w, "project not found")
		return
	}

	pm, err := h.projects.AddMember(r.Context(), id, in.UserID, in.Role)
	if errors.Is(err, repo.ErrConflict) {
		conflict(w, "user is already a member of this project")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pm)
}

// DELETE /projects/{id}/members/{userID}
func (h *Handler) RemoveProjectMember(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid project id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	allowed, err := h.canManageProject(r.Context(), cur, id)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "you do not have permission to manage project members")
		return
	}
	if err := h.projects.RemoveMember(r.Context(), id, userID); err != nil {
		if errors.Is(err, repo.ErrNotMember) {
			badRequest(w, "user is not a member of this project")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
