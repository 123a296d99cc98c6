package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type ProjectStore struct{ db *gorm.DB }

func NewProjectStore(db *gorm.DB) *ProjectStore { return &ProjectStore{db: db} }

// List: стафф видит всё; остальные — публичные проекты и проекты, где состоят.
func (s *ProjectStore) List(ctx context.Context, viewer *models.User) ([]models.Project, error) {
	q := s.db.WithContext(ctx).Preload("Members").Preload("Members.User")
	if !viewer.IsStaff {
		member := s.db.Table("project_members").
			Select("project_id").Where("user_id = ?", viewer.ID)
		q = q.Where("is_public = ? OR id IN (?)", true, member)
	}
	var out []models.Project
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

func (s *ProjectStore) Get(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).
		Preload("Members").Preload("Members.User").
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("key = ?", p.Key).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	p.SyncCompletion(time.Now().UTC())
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *ProjectStore) Save(ctx context.Context, p *models.Project) error {
	p.SyncCompletion(time.Now().UTC())
	// ассоциации уже загружены Preload-ом; пишем только колонки проекта
	return s.db.WithContext(ctx).Omit("Members", "Owner", "Department").Save(p).Error
}

func (s *ProjectStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// -------- Участники --------

func (s *ProjectStore) AddMember(ctx context.Context, projectID, userID uint, role string) (*models.ProjectMember, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrConflict
	}
	pm := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := s.db.WithContext(ctx).Create(&pm).Error; err != nil {
		return nil, err
	}
	return &pm, nil
}

func (s *ProjectStore) RemoveMember(ctx context.Context, projectID, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

func (s *ProjectStore) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&n).Error
	return n > 0, err
}

// MemberRole возвращает роль участника или ErrNotMember.
func (s *ProjectStore) MemberRole(ctx context.Context, projectID, userID uint) (string, error) {
	var pm models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&pm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotMember
	}
	return pm.Role, err
}
