package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/models"
)

// seedProject заводит проект и добавляет в него участников.
func seedProject(t *testing.T, f *apiFixture, members ...*models.User) *models.Project {
	t.Helper()
	ctx := context.Background()
	p := &models.Project{Name: "Seed", Key: "SD", Status: models.ProjectStatusInProgress, Priority: models.PriorityMedium}
	require.NoError(t, f.projects.Create(ctx, p))
	for _, m := range members {
		_, err := f.projects.AddMember(ctx, p.ID, m.ID, models.MemberRoleMember)
		require.NoError(t, err)
	}
	return p
}

func TestCreateTaskRequiresMembership(t *testing.T) {
	f := newAPIFixture(t)
	member := f.newUser(t, "member", false)
	outsider := f.newUser(t, "outsider", false)
	p := seedProject(t, f, member)

	f.current = outsider
	w := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": p.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.current = member
	w = f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeJSON[taskOut](t, w)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	require.NotNil(t, task.CreatedByID)
	assert.Equal(t, member.ID, *task.CreatedByID)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "boss", true)
	p := seedProject(t, f)

	w := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"project_id": p.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// дедлайн в прошлом
	past := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	w = f.do(t, http.MethodPost, "/api/v1/tasks",
		map[string]any{"title": "T", "project_id": p.ID, "due_date": past})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks",
		map[string]any{"title": "T", "project_id": p.ID, "status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskUpdatePermission(t *testing.T) {
	f := newAPIFixture(t)
	creator := f.newUser(t, "creator", false)
	colleague := f.newUser(t, "colleague", false)
	p := seedProject(t, f, creator, colleague)

	f.current = creator
	w := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeJSON[taskOut](t, w)

	// участник проекта видит задачу, но менять чужую не может
	f.current = colleague
	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d", task.ID), map[string]any{"title": "New"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// после назначения — может
	f.current = creator
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", task.ID),
		map[string]any{"user_id": colleague.ID})
	require.Equal(t, http.StatusOK, w.Code)

	f.current = colleague
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d", task.ID), map[string]any{"title": "New"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTaskAssignLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	boss := f.newUser(t, "boss", true)
	a := f.newUser(t, "a", false)
	b := f.newUser(t, "b", false)
	stranger := f.newUser(t, "stranger", false)
	p := seedProject(t, f, a, b)

	f.current = boss
	w := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeJSON[taskOut](t, w)

	// не-участника проекта назначить нельзя
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", task.ID),
		map[string]any{"user_id": stranger.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// первый назначенный становится ведущим
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", task.ID),
		map[string]any{"user_id": a.ID})
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON[taskOut](t, w)
	require.NotNil(t, out.LeadAssigneeID)
	assert.Equal(t, a.ID, *out.LeadAssigneeID)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/assign", task.ID),
		map[string]any{"user_id": b.ID})
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeJSON[taskOut](t, w)
	assert.Equal(t, a.ID, *out.LeadAssigneeID)

	// передаём лидерство
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/set-lead", task.ID),
		map[string]any{"user_id": b.ID})
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeJSON[taskOut](t, w)
	assert.Equal(t, b.ID, *out.LeadAssigneeID)

	// снимаем ведущего — лидерство возвращается к оставшемуся
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/unassign", task.ID),
		map[string]any{"user_id": b.ID})
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeJSON[taskOut](t, w)
	require.NotNil(t, out.LeadAssigneeID)
	assert.Equal(t, a.ID, *out.LeadAssigneeID)

	// снять неназначенного нельзя
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/unassign", task.ID),
		map[string]any{"user_id": stranger.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskChangeStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "boss", true)
	p := seedProject(t, f)

	w := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeJSON[taskOut](t, w)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/change-status", task.ID),
		map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/change-status", task.ID),
		map[string]any{"status": models.TaskStatusDone})
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON[taskOut](t, w)
	assert.Equal(t, models.TaskStatusDone, out.Status)
	assert.NotNil(t, out.CompletedAt)
}

func TestTaskListFiltersByQuery(t *testing.T) {
	f := newAPIFixture(t)
	member := f.newUser(t, "member", false)
	outsider := f.newUser(t, "outsider", false)
	p := seedProject(t, f, member)

	f.current = member
	w := f.do(t, http.MethodPost, "/api/v1/tasks",
		map[string]any{"title": "T1", "project_id": p.ID, "priority": models.PriorityHigh})
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T2", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks?project_id=%d&priority=high", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeJSON[[]taskOut](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "T1", got[0].Title)

	// посторонний не видит задач чужого проекта
	f.current = outsider
	w = f.do(t, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeJSON[[]taskOut](t, w))
}

func TestAttachmentLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "boss", true)
	p := seedProject(t, f)

	w := f.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "T", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeJSON[taskOut](t, w)

	// multipart upload
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("quarterly numbers"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/tasks/%d/attachments", task.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	att := decodeJSON[models.TaskAttachment](t, rec)
	assert.Equal(t, "report.txt", att.FileName)
	assert.EqualValues(t, len("quarterly numbers"), att.FileSize)

	// список — только метаданные
	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/attachments", task.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeJSON[[]models.TaskAttachment](t, w)
	require.Len(t, list, 1)

	// скачивание отдаёт исходные байты
	w = f.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/tasks/%d/attachments/%d/download", task.ID, att.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quarterly numbers", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.txt")

	w = f.do(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/tasks/%d/attachments/%d", task.ID, att.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/tasks/%d/attachments/%d", task.ID, att.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
