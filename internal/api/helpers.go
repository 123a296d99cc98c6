package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"atrium/internal/models"
	"atrium/internal/repo"
)

// dateIn принимает дату как "2006-01-02" или полный RFC3339.
type dateIn struct{ time.Time }

func (d *dateIn) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *dateIn) ptr() *time.Time {
	if d.Time.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Handler обслуживает /api/v1/* — enterprise CRUD.
type Handler struct {
	users    *repo.UserStore
	depts    *repo.DepartmentStore
	roles    *repo.RoleStore
	projects *repo.ProjectStore
	tasks    *repo.TaskStore
	atts     *repo.AttachmentStore
}

func NewHandler(users *repo.UserStore, depts *repo.DepartmentStore, roles *repo.RoleStore,
	projects *repo.ProjectStore, tasks *repo.TaskStore, atts *repo.AttachmentStore) *Handler {
	return &Handler{users: users, depts: depts, roles: roles, projects: projects, tasks: tasks, atts: atts}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// pathID разбирает числовой path-параметр.
func pathID(r *http.Request, name string) (uint, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

func badRequest(w http.ResponseWriter, detail string) {
	models.WriteProblem(w, http.StatusBadRequest, "Bad Request", detail, nil)
}

func notFound(w http.ResponseWriter, detail string) {
	models.WriteProblem(w, http.StatusNotFound, "Not Found", detail, nil)
}

func forbidden(w http.ResponseWriter, detail string) {
	models.WriteProblem(w, http.StatusForbidden, "Forbidden", detail, nil)
}

func conflict(w http.ResponseWriter, detail string) {
	models.WriteProblem(w, http.StatusConflict, "Conflict", detail, nil)
}

func internalError(w http.ResponseWriter, err error) {
	models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
}

// -------- Предикаты доступа --------

// requireStaff: true — можно продолжать; false — ответ уже записан.
func requireStaff(w http.ResponseWriter, u *models.User) bool {
	if u.IsStaff {
		return true
	}
	forbidden(w, "staff access required")
	return false
}

// operationsLeadOrStaff — право заводить проекты.
func operationsLeadOrStaff(u *models.User) bool {
	if u.IsStaff {
		return true
	}
	return u.Profile != nil && u.Profile.Role != nil && u.Profile.Role.Name == models.RoleOperationsLead
}

// canManageProject — стафф либо участник-админ проекта.
func (h *Handler) canManageProject(ctx context.Context, u *models.User, projectID uint) (bool, error) {
	if u.IsStaff {
		return true, nil
	}
	role, err := h.projects.MemberRole(ctx, projectID, u.ID)
	if err == repo.ErrNotMember {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == models.MemberRoleAdmin, nil
}

// canSeeProject — стафф, публичный проект либо участник.
func (h *Handler) canSeeProject(ctx context.Context, u *models.User, p *models.Project) (bool, error) {
	if u.IsStaff || p.IsPublic {
		return true, nil
	}
	return h.projects.IsMember(ctx, p.ID, u.ID)
}

// canTouchTask — создатель, любой исполнитель либо стафф.
func (h *Handler) canTouchTask(ctx context.Context, u *models.User, t *models.Task) (bool, error) {
	if u.IsStaff {
		return true, nil
	}
	if t.CreatedByID != nil && *t.CreatedByID == u.ID {
		return true, nil
	}
	return h.tasks.IsAssignee(ctx, t.ID, u.ID)
}
