package models

import "time"

// Статусы проекта.
const (
	ProjectStatusDraft      = "draft"
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusOnHold     = "on_hold"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
	ProjectStatusArchived   = "archived"
)

// Приоритеты — общие для проектов и задач.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Роли участника проекта.
const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
	MemberRoleViewer = "viewer"
)

func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusPlanning, ProjectStatusInProgress,
		ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled, ProjectStatusArchived:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ValidMemberRole(r string) bool {
	switch r {
	case MemberRoleAdmin, MemberRoleMember, MemberRoleViewer:
		return true
	}
	return false
}

type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Key         string `gorm:"uniqueIndex;size:10;not null" json:"key"` // короткий идентификатор, например PRJ-001
	Description string `json:"description,omitempty"`

	Status   string `gorm:"size:20;default:draft" json:"status"`
	Priority string `gorm:"size:10;default:medium" json:"priority"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Budget    *float64   `gorm:"type:decimal(15,2)" json:"budget,omitempty"`
	Progress  int        `gorm:"default:0" json:"progress"` // 0..100

	OwnerID      *uint `json:"owner_id,omitempty"`
	DepartmentID *uint `json:"department_id,omitempty"`
	CreatedByID  *uint `json:"created_by_id,omitempty"`

	IsTemplate bool `gorm:"default:false" json:"is_template"`
	IsPublic   bool `gorm:"default:false" json:"is_public"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Owner      *User           `gorm:"foreignKey:OwnerID" json:"-"`
	Department *Department     `gorm:"foreignKey:DepartmentID" json:"-"`
	Members    []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

// IsActive — проект в работе (planning или in_progress).
func (p *Project) IsActive() bool {
	return p.Status == ProjectStatusPlanning || p.Status == ProjectStatusInProgress
}

// SyncCompletion выставляет/сбрасывает CompletedAt при смене статуса.
func (p *Project) SyncCompletion(now time.Time) {
	switch {
	case p.Status == ProjectStatusCompleted && p.CompletedAt == nil:
		p.CompletedAt = &now
	case p.Status != ProjectStatusCompleted && p.CompletedAt != nil:
		p.CompletedAt = nil
	}
}

type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID uint   `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID    uint   `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	Role      string `gorm:"size:10;default:member" json:"role"` // admin|member|viewer

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
