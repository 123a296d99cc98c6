package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type DepartmentStore struct{ db *gorm.DB }

func NewDepartmentStore(db *gorm.DB) *DepartmentStore { return &DepartmentStore{db: db} }

func (s *DepartmentStore) List(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	err := s.db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

func (s *DepartmentStore) Get(ctx context.Context, id uint) (*models.Department, error) {
	var d models.Department
	err := s.db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (s *DepartmentStore) Create(ctx context.Context, d *models.Department) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Department{}).
		Where("name = ?", d.Name).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *DepartmentStore) Save(ctx context.Context, d *models.Department) error {
	return s.db.WithContext(ctx).Save(d).Error
}

func (s *DepartmentStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Department{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
