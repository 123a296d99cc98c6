package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
)

type taskIn struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ProjectID   *uint   `json:"project_id"`
	DueDate     *dateIn `json:"due_date"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// taskOut — задача с вычисляемыми полями для списков и карточек.
type taskOut struct {
	*models.Task
	ProjectName     string `json:"project_name,omitempty"`
	CreatedByName   string `json:"created_by_name,omitempty"`
	LeadAssigneeID  *uint  `json:"lead_assignee_id,omitempty"`
	AttachmentCount int    `json:"attachment_count"`
	IsOverdue       bool   `json:"is_overdue"`
}

func renderTask(t *models.Task) taskOut {
	out := taskOut{
		Task:            t,
		AttachmentCount: len(t.Attachments),
		IsOverdue:       t.IsOverdue(time.Now().UTC()),
	}
	if t.Project != nil {
		out.ProjectName = t.Project.Name
	}
	if t.CreatedBy != nil {
		out.CreatedByName = t.CreatedBy.FullName()
	}
	if lead := t.LeadAssignee(); lead != nil {
		out.LeadAssigneeID = &lead.AssigneeID
	}
	return out
}

func renderTasks(tasks []models.Task) []taskOut {
	out := make([]taskOut, 0, len(tasks))
	for i := range tasks {
		out = append(out, renderTask(&tasks[i]))
	}
	return out
}

func queryUint(r *http.Request, name string) *uint {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	u := uint(n)
	return &u
}

// GET /tasks — фильтры по проекту/исполнителю/статусу/приоритету/просрочке.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	q := r.URL.Query()

	f := repo.TaskFilter{
		ProjectID:      queryUint(r, "project_id"),
		AssigneeID:     queryUint(r, "assignee_id"),
		LeadAssigneeID: queryUint(r, "lead_assignee_id"),
		Status:         q.Get("status"),
		Priority:       q.Get("priority"),
		OverdueOnly:    q.Get("is_overdue") == "true",
	}
	if !cur.IsStaff {
		// не-стафф видит только задачи своих проектов
		f.ViewerID = &cur.ID
	}

	tasks, err := h.tasks.List(r.Context(), f)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTasks(tasks))
}

// POST /tasks — только участник проекта (или стафф).
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	var in taskIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Title == nil || *in.Title == "" || in.ProjectID == nil {
		badRequest(w, "title and project_id are required")
		return
	}
	if _, err := h.projects.Get(r.Context(), *in.ProjectID); errors.Is(err, repo.ErrNotFound) {
		notFound(w, "project not found")
		return
	}
	if !cur.IsStaff {
		member, err := h.projects.IsMember(r.Context(), *in.ProjectID, cur.ID)
		if err != nil {
			internalError(w, err)
			return
		}
		if !member {
			forbidden(w, "only project members can create tasks")
			return
		}
	}

	t := models.Task{
		Title:       *in.Title,
		ProjectID:   *in.ProjectID,
		CreatedByID: &cur.ID,
		Priority:    models.PriorityMedium,
		Status:      models.TaskStatusTodo,
	}
	if !applyTaskPatch(w, &t, &in, true) {
		return
	}
	if err := h.tasks.Create(r.Context(), &t); err != nil {
		internalError(w, err)
		return
	}
	created, err := h.tasks.Get(r.Context(), t.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderTask(created))
}

// applyTaskPatch применяет частичный ввод; creating включает проверку
// дедлайна в будущем. false — ответ уже записан.
func applyTaskPatch(w http.ResponseWriter, t *models.Task, in *taskIn, creating bool) bool {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DueDate != nil {
		due := in.DueDate.ptr()
		if creating && due != nil && due.Before(time.Now().UTC()) {
			badRequest(w, "due date must be in the future")
			return false
		}
		t.DueDate = due
	}
	if in.Priority != nil {
		if !models.ValidPriority(*in.Priority) {
			badRequest(w, "invalid priority")
			return false
		}
		t.Priority = *in.Priority
	}
	if in.Status != nil {
		if !models.ValidTaskStatus(*in.Status) {
			badRequest(w, "invalid status")
			return false
		}
		t.Status = *in.Status
	}
	return true
}

// getVisibleTask загружает задачу с проверкой видимости; nil — ответ записан.
func (h *Handler) getVisibleTask(w http.ResponseWriter, r *http.Request) *models.Task {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid task id")
		return nil
	}
	t, err := h.tasks.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "task not found")
		return nil
	}
	if err != nil {
		internalError(w, err)
		return nil
	}
	if !cur.IsStaff {
		member, err := h.projects.IsMember(r.Context(), t.ProjectID, cur.ID)
		if err != nil {
			internalError(w, err)
			return nil
		}
		if !member {
			forbidden(w, "you do not have access to this task")
			return nil
		}
	}
	return t
}

// GET /tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	writeJSON(w, http.StatusOK, renderTask(t))
}

// PUT /tasks/{id} — создатель, исполнитель либо стафф.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	allowed, err := h.canTouchTask(r.Context(), cur, t)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "only the task creator, an assignee or staff can modify this task")
		return
	}
	var in taskIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if !applyTaskPatch(w, t, &in, false) {
		return
	}
	if err := h.tasks.Save(r.Context(), t); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTask(t))
}

// DELETE /tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	allowed, err := h.canTouchTask(r.Context(), cur, t)
	if err != nil {
		internalError(w, err)
		return
	}
	if !allowed {
		forbidden(w, "only the task creator, an assignee or staff can delete this task")
		return
	}
	if err := h.tasks.Delete(r.Context(), t.ID); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeStatusIn struct {
	Status string `json:"status"`
}

// POST /tasks/{id}/change-status
func (h *Handler) ChangeTaskStatus(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	var in changeStatusIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Status == "" {
		badRequest(w, "status is required")
		return
	}
	if !models.ValidTaskStatus(in.Status) {
		badRequest(w, "invalid status")
		return
	}
	t.Status = in.Status
	if err := h.tasks.Save(r.Context(), t); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTask(t))
}

type assignIn struct {
	UserID uint `json:"user_id"`
	IsLead bool `json:"is_lead"`
}

// POST /tasks/{id}/assign — назначаемый обязан быть участником проекта.
func (h *Handler) AssignTask(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	var in assignIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserID == 0 {
		badRequest(w, "user_id is required")
		return
	}
	if _, err := h.users.ByID(r.Context(), in.UserID); errors.Is(err, repo.ErrNotFound) {
		notFound(w, "user not found")
		return
	}
	member, err := h.projects.IsMember(r.Context(), t.ProjectID, in.UserID)
	if err != nil {
		internalError(w, err)
		return
	}
	if !member {
		badRequest(w, "user is not a member of this project")
		return
	}
	if _, err := h.tasks.Assign(r.Context(), t.ID, in.UserID, in.IsLead); err != nil {
		internalError(w, err)
		return
	}
	updated, err := h.tasks.Get(r.Context(), t.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTask(updated))
}

// POST /tasks/{id}/unassign
func (h *Handler) UnassignTask(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	var in assignIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserID == 0 {
		badRequest(w, "user_id is required")
		return
	}
	if err := h.tasks.Unassign(r.Context(), t.ID, in.UserID); err != nil {
		if errors.Is(err, repo.ErrNotAssigned) {
			badRequest(w, "user is not assigned to this task")
			return
		}
		internalError(w, err)
		return
	}
	updated, err := h.tasks.Get(r.Context(), t.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTask(updated))
}

// POST /tasks/{id}/set-lead
func (h *Handler) SetTaskLead(w http.ResponseWriter, r *http.Request) {
	t := h.getVisibleTask(w, r)
	if t == nil {
		return
	}
	var in assignIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserID == 0 {
		badRequest(w, "user_id is required")
		return
	}
	if err := h.tasks.SetLead(r.Context(), t.ID, in.UserID); err != nil {
		if errors.Is(err, repo.ErrNotAssigned) {
			badRequest(w, "user is not assigned to this task")
			return
		}
		internalError(w, err)
		return
	}
	updated, err := h.tasks.Get(r.Context(), t.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTask(updated))
}
