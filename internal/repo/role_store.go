package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type RoleStore struct{ db *gorm.DB }

func NewRoleStore(db *gorm.DB) *RoleStore { return &RoleStore{db: db} }

func (s *RoleStore) List(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	err := s.db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

func (s *RoleStore) Get(ctx context.Context, id uint) (*models.Role, error) {
	var r models.Role
	err := s.db.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (s *RoleStore) Create(ctx context.Context, r *models.Role) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).
		Where("name = ?", r.Name).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *RoleStore) Save(ctx context.Context, r *models.Role) error {
	return s.db.WithContext(ctx).Save(r).Error
}

func (s *RoleStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Role{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
