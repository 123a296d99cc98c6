package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type TaskStore struct{ db *gorm.DB }

func NewTaskStore(db *gorm.DB) *TaskStore { return &TaskStore{db: db} }

// TaskFilter — параметры выборки списка задач.
type TaskFilter struct {
	ProjectID      *uint
	AssigneeID     *uint
	LeadAssigneeID *uint
	Status         string
	Priority       string
	OverdueOnly    bool

	// ViewerID ограничивает выборку проектами, где состоит пользователь
	// (для не-стаффа); nil — без ограничения.
	ViewerID *uint
}

func (s *TaskStore) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Model(&models.Task{}).
		Preload("Assignments").Preload("Assignments.Assignee").
		Preload("Attachments").Preload("Project").Preload("CreatedBy")

	if f.ProjectID != nil {
		q = q.Where("tasks.project_id = ?", *f.ProjectID)
	}
	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("tasks.priority = ?", f.Priority)
	}
	if f.AssigneeID != nil {
		sub := s.db.Table("task_assignments").
			Select("task_id").Where("assignee_id = ?", *f.AssigneeID)
		q = q.Where("tasks.id IN (?)", sub)
	}
	if f.LeadAssigneeID != nil {
		sub := s.db.Table("task_assignments").
			Select("task_id").Where("assignee_id = ? AND is_lead = ?", *f.LeadAssigneeID, true)
		q = q.Where("tasks.id IN (?)", sub)
	}
	if f.OverdueOnly {
		q = q.Where("tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?",
			time.Now().UTC(), models.TaskStatusDone)
	}
	if f.ViewerID != nil {
		member := s.db.Table("project_members").
			Select("project_id").Where("user_id = ?", *f.ViewerID)
		q = q.Where("tasks.project_id IN (?)", member)
	}

	var out []models.Task
	err := q.Order("tasks.due_date asc, tasks.id asc").Find(&out).Error
	return out, err
}

func (s *TaskStore) Get(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignments").Preload("Assignments.Assignee").
		Preload("Attachments").Preload("Project").Preload("CreatedBy").
		First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (s *TaskStore) Create(ctx context.Context, t *models.Task) error {
	t.SyncCompletion(time.Now().UTC())
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *TaskStore) Save(ctx context.Context, t *models.Task) error {
	t.SyncCompletion(time.Now().UTC())
	// ассоциации уже загружены Preload-ом; пишем только колонки задачи
	return s.db.WithContext(ctx).Omit("Assignments", "Attachments", "Project", "CreatedBy").Save(t).Error
}

func (s *TaskStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAttachment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Task{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// -------- Назначения --------

// Assign назначает исполнителя (create-or-update).
// Инварианты: первый назначенный становится ведущим; ведущий всегда один.
func (s *TaskStore) Assign(ctx context.Context, taskID, userID uint, isLead bool) (*models.TaskAssignment, error) {
	var out models.TaskAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.TaskAssignment{}).
			Where("task_id = ?", taskID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			isLead = true // первое назначение — всегда ведущий
		}
		if isLead {
			if err := tx.Model(&models.TaskAssignment{}).
				Where("task_id = ?", taskID).
				Update("is_lead", false).Error; err != nil {
				return err
			}
		}

		var a models.TaskAssignment
		err := tx.Where("task_id = ? AND assignee_id = ?", taskID, userID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a = models.TaskAssignment{TaskID: taskID, AssigneeID: userID, IsLead: isLead}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			out = a
			return nil
		}
		if err != nil {
			return err
		}
		a.IsLead = isLead
		if err := tx.Save(&a).Error; err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Unassign снимает исполнителя; если сняли ведущего — ведущим
// становится самый ранний из оставшихся.
func (s *TaskStore) Unassign(ctx context.Context, taskID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.TaskAssignment
		err := tx.Where("task_id = ? AND assignee_id = ?", taskID, userID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotAssigned
		}
		if err != nil {
			return err
		}
		wasLead := a.IsLead
		if err := tx.Delete(&a).Error; err != nil {
			return err
		}
		if wasLead {
			var next models.TaskAssignment
			err := tx.Where("task_id = ?", taskID).
				Order("assigned_at asc, id asc").First(&next).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // исполнителей не осталось
			}
			if err != nil {
				return err
			}
			next.IsLead = true
			return tx.Save(&next).Error
		}
		return nil
	})
}

// SetLead назначает ведущего из уже назначенных.
func (s *TaskStore) SetLead(ctx context.Context, taskID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.TaskAssignment
		err := tx.Where("task_id = ? AND assignee_id = ?", taskID, userID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotAssigned
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&models.TaskAssignment{}).
			Where("task_id = ?", taskID).
			Update("is_lead", false).Error; err != nil {
			return err
		}
		a.IsLead = true
		return tx.Save(&a).Error
	})
}

// IsAssignee — назначен ли пользователь на задачу.
func (s *TaskStore) IsAssignee(ctx context.Context, taskID, userID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TaskAssignment{}).
		Where("task_id = ? AND assignee_id = ?", taskID, userID).
		Count(&n).Error
	return n > 0, err
}
