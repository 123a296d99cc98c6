package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает enterprise-эндпоинты на /api/v1 за auth-мидлварой.
func RegisterRoutes(r *mux.Router, h *Handler, authMW mux.MiddlewareFunc) {
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(authMW)

	// departments
	v1.HandleFunc("/departments", h.ListDepartments).Methods(http.MethodGet)
	v1.HandleFunc("/departments", h.CreateDepartment).Methods(http.MethodPost)
	v1.HandleFunc("/departments/{id}", h.GetDepartment).Methods(http.MethodGet)
	v1.HandleFunc("/departments/{id}", h.UpdateDepartment).Methods(http.MethodPut)
	v1.HandleFunc("/departments/{id}", h.DeleteDepartment).Methods(http.MethodDelete)

	// roles
	v1.HandleFunc("/roles", h.ListRoles).Methods(http.MethodGet)
	v1.HandleFunc("/roles", h.CreateRole).Methods(http.MethodPost)
	v1.HandleFunc("/roles/{id}", h.GetRole).Methods(http.MethodGet)
	v1.HandleFunc("/roles/{id}", h.UpdateRole).Methods(http.MethodPut)
	v1.HandleFunc("/roles/{id}", h.DeleteRole).Methods(http.MethodDelete)

	// users; /users/me регистрируем раньше /users/{id}
	v1.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	v1.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	v1.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	v1.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
	v1.HandleFunc("/users/{id}/assign-role", h.AssignRole).Methods(http.MethodPost)

	// profile текущего пользователя
	v1.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	v1.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)

	// projects
	v1.HandleFunc("/projects", h.ListProjects).Methods(http.MethodGet)
	v1.HandleFunc("/projects", h.CreateProject).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{id}", h.GetProject).Methods(http.MethodGet)
	v1.HandleFunc("/projects/{id}", h.UpdateProject).Methods(http.MethodPut)
	v1.HandleFunc("/projects/{id}", h.DeleteProject).Methods(http.MethodDelete)
	v1.HandleFunc("/projects/{id}/members", h.AddProjectMember).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{id}/members/{userID}", h.RemoveProjectMember).Methods(http.MethodDelete)

	// tasks
	v1.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	v1.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	v1.HandleFunc("/tasks/{id}", h.UpdateTask).Methods(http.MethodPut)
	v1.HandleFunc("/tasks/{id}", h.DeleteTask).Methods(http.MethodDelete)
	v1.HandleFunc("/tasks/{id}/change-status", h.ChangeTaskStatus).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/assign", h.AssignTask).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/unassign", h.UnassignTask).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/set-lead", h.SetTaskLead).Methods(http.MethodPost)

	// attachments
	v1.HandleFunc("/tasks/{id}/attachments", h.ListAttachments).Methods(http.MethodGet)
	v1.HandleFunc("/tasks/{id}/attachments", h.UploadAttachment).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/attachments/{attID}", h.GetAttachment).Methods(http.MethodGet)
	v1.HandleFunc("/tasks/{id}/attachments/{attID}", h.DeleteAttachment).Methods(http.MethodDelete)
	v1.HandleFunc("/tasks/{id}/attachments/{attID}/download", h.DownloadAttachment).Methods(http.MethodGet)
}
