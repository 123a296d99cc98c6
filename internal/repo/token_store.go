package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type TokenStore struct{ db *gorm.DB }

func NewTokenStore(db *gorm.DB) *TokenStore { return &TokenStore{db: db} }

// IssueMagic создаёт новый magic-токен, предварительно гася все
// неиспользованные токены пользователя (ссылка всегда одна).
func (s *TokenStore) IssueMagic(ctx context.Context, userID uint, token string, expiresAt time.Time) (*models.MagicToken, error) {
	mt := models.MagicToken{Token: token, UserID: userID, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MagicToken{}).
			Where("user_id = ? AND used = ?", userID, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&mt).Error
	})
	if err != nil {
		return nil, err
	}
	return &mt, nil
}

// ConsumeMagic проверяет и гасит токен; возвращает владельца.
// Однократность обеспечивается флагом used внутри транзакции.
func (s *TokenStore) ConsumeMagic(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mt models.MagicToken
		if err := tx.Where("token = ?", token).First(&mt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if mt.Used {
			return ErrTokenUsed
		}
		if mt.Expired(now) {
			return ErrTokenExpired
		}
		mt.Used = true
		if err := tx.Save(&mt).Error; err != nil {
			return err
		}
		if err := tx.First(&user, mt.UserID).Error; err != nil {
			return err
		}
		if !user.IsActive {
			return ErrInactive
		}
		// вход по ссылке подтверждает почту
		user.EmailVerified = true
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Revoke заносит jti refresh-токена в чёрный список (logout).
func (s *TokenStore) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	rt := models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).Create(&rt).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil // повторный logout тем же токеном — не ошибка
	}
	return err
}

func (s *TokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("jti = ?", jti).Count(&n).Error
	return n > 0, err
}

// PurgeExpired вычищает просроченные записи (magic и blacklist).
func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) error {
	if err := s.db.WithContext(ctx).
		Where("expires_at < ?", now).Delete(&models.MagicToken{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("expires_at < ?", now).Delete(&models.RevokedToken{}).Error
}
