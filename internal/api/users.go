package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
)

type profileIn struct {
	DepartmentID *uint      `json:"department_id"`
	RoleID       *uint      `json:"role_id"`
	Bio          *string    `json:"bio"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Address      *string    `json:"address"`
	City         *string    `json:"city"`
	Country      *string    `json:"country"`
	PostalCode   *string    `json:"postal_code"`
}

func (in *profileIn) apply(p *models.UserProfile) {
	if in.DepartmentID != nil {
		p.DepartmentID = in.DepartmentID
	}
	if in.RoleID != nil {
		p.RoleID = in.RoleID
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = in.DateOfBirth
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.City != nil {
		p.City = *in.City
	}
	if in.Country != nil {
		p.Country = *in.Country
	}
	if in.PostalCode != nil {
		p.PostalCode = *in.PostalCode
	}
}

type userIn struct {
	Username  *string    `json:"username"`
	Email     *string    `json:"email"`
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Phone     *string    `json:"phone"`
	Password  *string    `json:"password"`
	IsActive  *bool      `json:"is_active"`
	IsStaff   *bool      `json:"is_staff"`
	Profile   *profileIn `json:"profile"`
}

// GET /users — стафф видит всех, остальные — свой департамент либо себя.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	out, err := h.users.List(r.Context(), auth.CurrentUser(r))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /users — только стафф; пароль хешируется argon2id.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	var in userIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Username == nil || *in.Username == "" || in.Email == nil || *in.Email == "" ||
		in.Password == nil || *in.Password == "" {
		badRequest(w, "username, email and password are required")
		return
	}

	hash, salt, err := auth.HashPassword(*in.Password)
	if err != nil {
		internalError(w, err)
		return
	}
	u := models.User{
		Username:     *in.Username,
		Email:        strings.ToLower(strings.TrimSpace(*in.Email)),
		PasswordHash: hash,
		PasswordSalt: salt,
		IsActive:     true,
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}

	if err := h.users.Create(r.Context(), &u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			conflict(w, "user with this email or username already exists")
			return
		}
		internalError(w, err)
		return
	}

	if in.Profile != nil {
		p := models.UserProfile{UserID: u.ID}
		in.Profile.apply(&p)
		if err := h.users.SaveProfile(r.Context(), &p); err != nil {
			internalError(w, err)
			return
		}
		u.Profile = &p
	}
	writeJSON(w, http.StatusCreated, &u)
}

// GET /users/{id} — стафф либо сам пользователь.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	if !cur.IsStaff && cur.ID != id {
		forbidden(w, "you do not have permission to view this user")
		return
	}
	u, err := h.users.ByID(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "user not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GET /users/me — собственная карточка с профилем.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	u, err := h.users.ByID(r.Context(), cur.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// PUT /users/{id} — только стафф, частичное обновление.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	u, err := h.users.ByID(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "user not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	var in userIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Username != nil || in.Email != nil {
		taken, err := h.users.Taken(r.Context(), u.Email, u.Username, u.ID)
		if err != nil {
			internalError(w, err)
			return
		}
		if taken {
			conflict(w, "user with this email or username already exists")
			return
		}
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}
	if in.Password != nil && *in.Password != "" {
		hash, salt, err := auth.HashPassword(*in.Password)
		if err != nil {
			internalError(w, err)
			return
		}
		u.PasswordHash, u.PasswordSalt = hash, salt
	}
	if err := h.users.Save(r.Context(), u); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DELETE /users/{id} — только стафф.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			notFound(w, "user not found")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRoleIn struct {
	RoleID uint `json:"role_id"`
}

// POST /users/{id}/assign-role
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, auth.CurrentUser(r)) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	var in assignRoleIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RoleID == 0 {
		badRequest(w, "role_id is required")
		return
	}
	if _, err := h.users.ByID(r.Context(), id); errors.Is(err, repo.ErrNotFound) {
		notFound(w, "user not found")
		return
	}
	if err := h.users.AssignRole(r.Context(), id, in.RoleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			badRequest(w, "invalid role_id")
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "role assigned"})
}

// GET /profile — профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	p, err := h.users.Profile(r.Context(), cur.ID)
	if errors.Is(err, repo.ErrNotFound) {
		notFound(w, "user profile not found")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PUT /profile — частичное обновление собственного профиля.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	cur := auth.CurrentUser(r)
	var in profileIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	p, err := h.users.Profile(r.Context(), cur.ID)
	if errors.Is(err, repo.ErrNotFound) {
		// профиля ещё нет — заводим на лету
		p = &models.UserProfile{UserID: cur.ID}
		err = nil
	}
	if err != nil {
		internalError(w, err)
		return
	}
	in.apply(p)
	if err := h.users.SaveProfile(r.Context(), p); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
