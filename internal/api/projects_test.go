package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/models"
)

func TestCreateProjectPermission(t *testing.T) {
	f := newAPIFixture(t)

	// рядовой пользователь не может заводить проекты
	f.current = f.newUser(t, "specialist", false)
	w := f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "X", "key": "X1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// operations lead — может
	f.current = f.newLead(t, "lead")
	w = f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "X", "key": "X1"})
	require.Equal(t, http.StatusCreated, w.Code)

	p := decodeJSON[models.Project](t, w)
	assert.Equal(t, models.ProjectStatusDraft, p.Status)
	assert.Equal(t, models.PriorityMedium, p.Priority)
	require.Len(t, p.Members, 1)
	assert.Equal(t, f.current.ID, p.Members[0].UserID)
	assert.Equal(t, models.MemberRoleAdmin, p.Members[0].Role)
}

func TestCreateProjectValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "boss", true)

	w := f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "No key"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/projects",
		map[string]any{"name": "Bad", "key": "B1", "status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/projects",
		map[string]any{"name": "Bad", "key": "B1", "progress": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectKeyConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "boss", true)

	w := f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "A", "key": "DUP"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "B", "key": "DUP"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProjectVisibility(t *testing.T) {
	f := newAPIFixture(t)
	boss := f.newUser(t, "boss", true)
	outsider := f.newUser(t, "outsider", false)

	f.current = boss
	w := f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Secret", "key": "SEC"})
	require.Equal(t, http.StatusCreated, w.Code)
	p := decodeJSON[models.Project](t, w)

	// посторонний не видит приватный проект
	f.current = outsider
	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", p.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// публичный проект виден всем
	f.current = boss
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/projects/%d", p.ID), map[string]any{"is_public": true})
	require.Equal(t, http.StatusOK, w.Code)

	f.current = outsider
	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", p.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// но менять его посторонний всё равно не может
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/projects/%d", p.ID), map[string]any{"name": "Hacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectMembers(t *testing.T) {
	f := newAPIFixture(t)
	boss := f.newUser(t, "boss", true)
	worker := f.newUser(t, "worker", false)

	f.current = boss
	w := f.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Team", "key": "TM"})
	require.Equal(t, http.StatusCreated, w.Code)
	p := decodeJSON[models.Project](t, w)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/members", p.ID),
		map[string]any{"user_id": worker.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	pm := decodeJSON[models.ProjectMember](t, w)
	assert.Equal(t, models.MemberRoleMember, pm.Role)

	// повторное добавление
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/members", p.ID),
		map[string]any{"user_id": worker.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// несуществующий пользователь
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/members", p.ID),
		map[string]any{"user_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d/members/%d", p.ID, worker.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d/members/%d", p.ID, worker.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepartmentsRequireStaff(t *testing.T) {
	f := newAPIFixture(t)

	f.current = f.newUser(t, "user", false)
	w := f.do(t, http.MethodPost, "/api/v1/departments", map[string]any{"name": "HR"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.current = f.newUser(t, "boss", true)
	w = f.do(t, http.MethodPost, "/api/v1/departments", map[string]any{"name": "HR"})
	require.Equal(t, http.StatusCreated, w.Code)

	// читать может любой аутентифицированный
	f.current = f.newUser(t, "user2", false)
	w = f.do(t, http.MethodGet, "/api/v1/departments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
