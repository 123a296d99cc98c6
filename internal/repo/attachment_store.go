package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type AttachmentStore struct{ db *gorm.DB }

func NewAttachmentStore(db *gorm.DB) *AttachmentStore { return &AttachmentStore{db: db} }

func (s *AttachmentStore) ListForTask(ctx context.Context, taskID uint) ([]models.TaskAttachment, error) {
	var out []models.TaskAttachment
	err := s.db.WithContext(ctx).
		Select("id", "created_at", "task_id", "uploaded_by_id", "file_name", "file_size", "content_type").
		Where("task_id = ?", taskID).
		Order("created_at desc").Find(&out).Error
	return out, err
}

func (s *AttachmentStore) Get(ctx context.Context, taskID, id uint) (*models.TaskAttachment, error) {
	var a models.TaskAttachment
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (s *AttachmentStore) Create(ctx context.Context, a *models.TaskAttachment) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *AttachmentStore) Delete(ctx context.Context, taskID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).Delete(&models.TaskAttachment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
