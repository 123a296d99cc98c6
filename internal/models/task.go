package models

import "time"

// Статусы задачи.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusInReview   = "in_review"
	TaskStatusDone       = "done"
	TaskStatusBlocked    = "blocked"
)

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone, TaskStatusBlocked:
		return true
	}
	return false
}

type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `json:"description,omitempty"`

	ProjectID   uint  `gorm:"index:idx_task_project_status;not null" json:"project_id"`
	CreatedByID *uint `json:"created_by_id,omitempty"`

	DueDate  *time.Time `gorm:"index" json:"due_date,omitempty"`
	Priority string     `gorm:"size:10;default:medium" json:"priority"`
	Status   string     `gorm:"size:20;index:idx_task_project_status;default:todo" json:"status"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Project     *Project         `gorm:"foreignKey:ProjectID" json:"-"`
	CreatedBy   *User            `gorm:"foreignKey:CreatedByID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Attachments []TaskAttachment `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
}

// IsOverdue — срок прошёл, а задача не закрыта.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusDone {
		return false
	}
	return now.After(*t.DueDate)
}

// SyncCompletion выставляет/сбрасывает CompletedAt при смене статуса.
func (t *Task) SyncCompletion(now time.Time) {
	switch {
	case t.Status == TaskStatusDone && t.CompletedAt == nil:
		t.CompletedAt = &now
	case t.Status != TaskStatusDone && t.CompletedAt != nil:
		t.CompletedAt = nil
	}
}

// LeadAssignee — ведущий исполнитель, если назначен.
func (t *Task) LeadAssignee() *TaskAssignment {
	for i := range t.Assignments {
		if t.Assignments[i].IsLead {
			return &t.Assignments[i]
		}
	}
	return nil
}

type TaskAssignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`

	TaskID     uint `gorm:"uniqueIndex:idx_task_assignee;not null" json:"task_id"`
	AssigneeID uint `gorm:"uniqueIndex:idx_task_assignee;not null" json:"assignee_id"`

	// Не более одного ведущего на задачу; первый назначенный становится ведущим.
	IsLead bool `gorm:"default:false" json:"is_lead"`

	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

type TaskAttachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TaskID       uint  `gorm:"index;not null" json:"task_id"`
	UploadedByID *uint `json:"uploaded_by_id,omitempty"`

	FileName    string `gorm:"size:255;not null" json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `gorm:"size:100" json:"content_type"`

	// Содержимое храним прямо в БД, без файлового стораджа.
	Content []byte `json:"-"`
}
