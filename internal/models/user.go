package models

import (
	"time"

	"gorm.io/datatypes"
)

// Роли уровня организации (profile.role).
const (
	RoleOperationsManager    = "operations_manager"
	RoleOperationsLead       = "operations_lead"
	RoleOperationsSpecialist = "operations_specialist"
	RoleViewer               = "viewer"
	RoleStakeholder          = "stakeholder"
)

func ValidRoleName(name string) bool {
	switch name {
	case RoleOperationsManager, RoleOperationsLead, RoleOperationsSpecialist, RoleViewer, RoleStakeholder:
		return true
	}
	return false
}

// User — единая учётка для OAuth и magic-link входов; email — ключ склейки.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Username string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	// NULL у учёток без Google-входа; уникальность действует только на заполненные.
	GoogleID *string `gorm:"uniqueIndex;size:64" json:"google_id,omitempty"`

	Name      string `gorm:"size:255" json:"name,omitempty"`
	Picture   string `gorm:"size:512" json:"picture,omitempty"`
	FirstName string `gorm:"size:150" json:"first_name,omitempty"`
	LastName  string `gorm:"size:150" json:"last_name,omitempty"`
	Phone     string `gorm:"size:20"  json:"phone,omitempty"`

	// Пароль есть только у «enterprise»-учёток; magic-link пользователи живут без него.
	PasswordHash []byte `gorm:"size:64" json:"-"`
	PasswordSalt []byte `gorm:"size:32" json:"-"`

	IsActive      bool   `gorm:"default:true" json:"is_active"`
	IsStaff       bool   `gorm:"default:false" json:"is_staff"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`
	LastLoginIP   string `gorm:"size:45" json:"-"`

	Profile *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Name
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID       uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	DepartmentID *uint `json:"department_id,omitempty"`
	RoleID       *uint `json:"role_id,omitempty"`

	Bio         string     `json:"bio,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Address     string     `json:"address,omitempty"`
	City        string     `gorm:"size:100" json:"city,omitempty"`
	Country     string     `gorm:"size:100" json:"country,omitempty"`
	PostalCode  string     `gorm:"size:20"  json:"postal_code,omitempty"`

	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Role       *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `json:"description,omitempty"`
}

type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Description string `json:"description,omitempty"`

	// Список кодовых имён разрешений, хранится как JSON.
	Permissions datatypes.JSON `json:"permissions,omitempty"`
}
