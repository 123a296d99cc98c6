package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"atrium/internal/models"
	"atrium/internal/testutil"
)

type taskFixture struct {
	db      *gorm.DB
	tasks   *TaskStore
	project models.Project
	users   [3]models.User
	task    models.Task
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &taskFixture{db: db, tasks: NewTaskStore(db)}

	for i, name := range []string{"ann", "ben", "cid"} {
		f.users[i] = models.User{Email: name + "@example.com", Username: name, IsActive: true}
		require.NoError(t, db.Create(&f.users[i]).Error)
	}
	f.project = models.Project{Name: "P", Key: "P1", Status: models.ProjectStatusInProgress, Priority: models.PriorityMedium}
	require.NoError(t, db.Create(&f.project).Error)
	f.task = models.Task{Title: "T", ProjectID: f.project.ID, Status: models.TaskStatusTodo, Priority: models.PriorityMedium}
	require.NoError(t, f.tasks.Create(context.Background(), &f.task))
	return f
}

func (f *taskFixture) assignments(t *testing.T) []models.TaskAssignment {
	t.Helper()
	var out []models.TaskAssignment
	require.NoError(t, f.db.Where("task_id = ?", f.task.ID).Order("id asc").Find(&out).Error)
	return out
}

func TestTaskAssignFirstBecomesLead(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	// явно просим не-ведущего, но первый всё равно становится ведущим
	a, err := f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, false)
	require.NoError(t, err)
	assert.True(t, a.IsLead)

	b, err := f.tasks.Assign(ctx, f.task.ID, f.users[1].ID, false)
	require.NoError(t, err)
	assert.False(t, b.IsLead)
}

func TestTaskAssignLeadDemotesOthers(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, false)
	require.NoError(t, err)
	b, err := f.tasks.Assign(ctx, f.task.ID, f.users[1].ID, true)
	require.NoError(t, err)
	assert.True(t, b.IsLead)

	leads := 0
	for _, a := range f.assignments(t) {
		if a.IsLead {
			leads++
			assert.Equal(t, f.users[1].ID, a.AssigneeID)
		}
	}
	assert.Equal(t, 1, leads)
}

func TestTaskAssignIsIdempotentPerUser(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, false)
	require.NoError(t, err)
	_, err = f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, false)
	require.NoError(t, err)
	assert.Len(t, f.assignments(t), 1)
}

func TestTaskUnassignHandsLeadOver(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, true)
	require.NoError(t, err)
	_, err = f.tasks.Assign(ctx, f.task.ID, f.users[1].ID, false)
	require.NoError(t, err)
	_, err = f.tasks.Assign(ctx, f.task.ID, f.users[2].ID, false)
	require.NoError(t, err)

	// снимаем ведущего — лидерство уходит самому раннему из оставшихся
	require.NoError(t, f.tasks.Unassign(ctx, f.task.ID, f.users[0].ID))
	as := f.assignments(t)
	require.Len(t, as, 2)
	assert.Equal(t, f.users[1].ID, as[0].AssigneeID)
	assert.True(t, as[0].IsLead)
	assert.False(t, as[1].IsLead)
}

func TestTaskUnassignNotAssigned(t *testing.T) {
	f := newTaskFixture(t)
	err := f.tasks.Unassign(context.Background(), f.task.ID, f.users[0].ID)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestTaskSetLead(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, true)
	require.NoError(t, err)
	_, err = f.tasks.Assign(ctx, f.task.ID, f.users[1].ID, false)
	require.NoError(t, err)

	require.NoError(t, f.tasks.SetLead(ctx, f.task.ID, f.users[1].ID))
	for _, a := range f.assignments(t) {
		assert.Equal(t, a.AssigneeID == f.users[1].ID, a.IsLead)
	}

	assert.ErrorIs(t, f.tasks.SetLead(ctx, f.task.ID, f.users[2].ID), ErrNotAssigned)
}

func TestTaskListFilters(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	overdue := models.Task{Title: "Late", ProjectID: f.project.ID, Status: models.TaskStatusInProgress,
		Priority: models.PriorityHigh, DueDate: &past}
	require.NoError(t, f.tasks.Create(ctx, &overdue))
	doneLate := models.Task{Title: "Done late", ProjectID: f.project.ID, Status: models.TaskStatusDone,
		Priority: models.PriorityLow, DueDate: &past}
	require.NoError(t, f.tasks.Create(ctx, &doneLate))

	_, err := f.tasks.Assign(ctx, overdue.ID, f.users[0].ID, true)
	require.NoError(t, err)

	got, err := f.tasks.List(ctx, TaskFilter{OverdueOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1) // done не считается просроченной
	assert.Equal(t, "Late", got[0].Title)

	got, err = f.tasks.List(ctx, TaskFilter{AssigneeID: &f.users[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)

	got, err = f.tasks.List(ctx, TaskFilter{LeadAssigneeID: &f.users[0].ID})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.tasks.List(ctx, TaskFilter{Status: models.TaskStatusDone})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// не-участник проекта не видит ничего
	got, err = f.tasks.List(ctx, TaskFilter{ViewerID: &f.users[2].ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTaskCompletionSync(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	f.task.Status = models.TaskStatusDone
	require.NoError(t, f.tasks.Save(ctx, &f.task))
	assert.NotNil(t, f.task.CompletedAt)

	f.task.Status = models.TaskStatusInReview
	require.NoError(t, f.tasks.Save(ctx, &f.task))
	assert.Nil(t, f.task.CompletedAt)
}

func TestTaskDeleteCascades(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Assign(ctx, f.task.ID, f.users[0].ID, true)
	require.NoError(t, err)
	att := models.TaskAttachment{TaskID: f.task.ID, FileName: "a.txt", FileSize: 1, ContentType: "text/plain", Content: []byte("x")}
	require.NoError(t, f.db.Create(&att).Error)

	require.NoError(t, f.tasks.Delete(ctx, f.task.ID))
	assert.ErrorIs(t, f.tasks.Delete(ctx, f.task.ID), ErrNotFound)

	var n int64
	require.NoError(t, f.db.Model(&models.TaskAssignment{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&models.TaskAttachment{}).Count(&n).Error)
	assert.Zero(t, n)
}
