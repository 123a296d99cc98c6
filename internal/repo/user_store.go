package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"atrium/internal/models"
)

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) ByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").Preload("Profile.Department").Preload("Profile.Role").
		First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (s *UserStore) ByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("google_id = ?", googleID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &u, err
}

// FindOrCreateByEmail — для magic-link: новой почте заводим учётку на лету.
func (s *UserStore) FindOrCreateByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.ByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	nu := models.User{
		Email:    email,
		Username: email, // username обязателен и уникален; для magic-link учёток = email
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&nu).Error; err != nil {
		return nil, false, err
	}
	return &nu, true, nil
}

// UpsertFromGoogle ищет по google_id, при отсутствии — создаёт;
// у существующего обновляет имя/аватар из свежего профиля.
func (s *UserStore) UpsertFromGoogle(ctx context.Context, googleID, email, name, picture string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.ByGoogleID(ctx, googleID)
	if errors.Is(err, ErrNotFound) {
		// почта могла уже завестись через magic-link — привязываем google_id к ней
		u, err = s.ByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			nu := models.User{
				Email:         email,
				Username:      email,
				GoogleID:      &googleID,
				Name:          name,
				Picture:       picture,
				IsActive:      true,
				EmailVerified: true,
			}
			if err := s.db.WithContext(ctx).Create(&nu).Error; err != nil {
				return nil, err
			}
			return &nu, nil
		}
		if err != nil {
			return nil, err
		}
		u.GoogleID = &googleID
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u.Name = name
	u.Picture = picture
	u.EmailVerified = true
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// Create — создание пользователя стаффом (с паролем и, опционально, профилем).
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", u.Email, u.Username).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}

// Taken — занят ли email или username кем-то, кроме excludeID.
// Для проверки коллизий при обновлении учётки.
func (s *UserStore) Taken(ctx context.Context, email, username string, excludeID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("(email = ? OR username = ?) AND id <> ?",
			strings.ToLower(strings.TrimSpace(email)), username, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (s *UserStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List: стафф видит всех; остальные — коллег по департаменту, либо только себя.
func (s *UserStore) List(ctx context.Context, viewer *models.User) ([]models.User, error) {
	q := s.db.WithContext(ctx).
		Preload("Profile").Preload("Profile.Department").Preload("Profile.Role")
	if !viewer.IsStaff {
		if viewer.Profile != nil && viewer.Profile.DepartmentID != nil {
			q = q.Joins("JOIN user_profiles up ON up.user_id = users.id").
				Where("up.department_id = ?", *viewer.Profile.DepartmentID)
		} else {
			q = q.Where("users.id = ?", viewer.ID)
		}
	}
	var users []models.User
	err := q.Order("users.id asc").Find(&users).Error
	return users, err
}

func (s *UserStore) AssignRole(ctx context.Context, userID, roleID uint) error {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.UserProfile
		err := tx.Where("user_id = ?", userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = models.UserProfile{UserID: userID, RoleID: &role.ID}
			return tx.Create(&p).Error
		}
		if err != nil {
			return err
		}
		p.RoleID = &role.ID
		return tx.Save(&p).Error
	})
}

func (s *UserStore) Profile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.WithContext(ctx).
		Preload("Department").Preload("Role").
		Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (s *UserStore) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *UserStore) TouchLogin(ctx context.Context, userID uint, ip string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"last_login_ip": ip, "updated_at": time.Now().UTC()}).Error
}
