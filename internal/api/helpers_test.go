package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"atrium/internal/auth"
	"atrium/internal/models"
	"atrium/internal/repo"
	"atrium/internal/testutil"
)

// apiFixture поднимает роутер с подменной авторизацией: вместо Bearer-токена
// в контекст кладётся f.current.
type apiFixture struct {
	db      *gorm.DB
	router  *mux.Router
	current *models.User

	users    *repo.UserStore
	projects *repo.ProjectStore
	tasks    *repo.TaskStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &apiFixture{
		db:       db,
		users:    repo.NewUserStore(db),
		projects: repo.NewProjectStore(db),
		tasks:    repo.NewTaskStore(db),
	}

	h := NewHandler(f.users, repo.NewDepartmentStore(db), repo.NewRoleStore(db),
		f.projects, f.tasks, repo.NewAttachmentStore(db))

	fakeAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.current == nil {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, auth.WithUser(r, f.current))
		})
	}

	f.router = mux.NewRouter()
	RegisterRoutes(f.router, h, fakeAuth)
	return f
}

func (f *apiFixture) newUser(t *testing.T, username string, staff bool) *models.User {
	t.Helper()
	u := models.User{Email: username + "@example.com", Username: username, IsActive: true, IsStaff: staff}
	require.NoError(t, f.db.Create(&u).Error)
	return &u
}

// newLead заводит пользователя с ролью operations_lead.
func (f *apiFixture) newLead(t *testing.T, username string) *models.User {
	t.Helper()
	u := f.newUser(t, username, false)
	role := models.Role{Name: models.RoleOperationsLead}
	require.NoError(t, f.db.FirstOrCreate(&role, models.Role{Name: models.RoleOperationsLead}).Error)
	require.NoError(t, f.db.Create(&models.UserProfile{UserID: u.ID, RoleID: &role.ID}).Error)
	loaded, err := f.users.ByID(context.Background(), u.ID)
	require.NoError(t, err)
	return loaded
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}
