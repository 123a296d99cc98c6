package models

import "time"

// MagicToken — одноразовый токен для входа по ссылке из письма.
type MagicToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (t *MagicToken) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }

// RevokedToken — чёрный список refresh-токенов (по jti), заполняется на logout.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RevokedAt time.Time `gorm:"autoCreateTime" json:"revoked_at"`

	JTI       string    `gorm:"uniqueIndex;size:36;not null" json:"jti"`
	UserID    uint      `gorm:"index" json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"` // когда запись можно вычистить
}
