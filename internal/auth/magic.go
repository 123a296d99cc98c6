package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"atrium/internal/models"
	"atrium/internal/repo"
)

// Mailer — доставка magic-ссылки (реализация в internal/mailer).
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// MagicService — жизненный цикл одноразовых токенов входа.
type MagicService struct {
	users  *repo.UserStore
	tokens *repo.TokenStore
	mailer Mailer

	ttl         time.Duration
	frontendURL string

	// Подменяется в тестах.
	Now func() time.Time
}

func NewMagicService(users *repo.UserStore, tokens *repo.TokenStore, mailer Mailer, ttl time.Duration, frontendURL string) *MagicService {
	return &MagicService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		ttl:         ttl,
		frontendURL: frontendURL,
		Now:         time.Now,
	}
}

// GenerateToken — 32 случайных байта в url-safe base64.
func GenerateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Request заводит (при необходимости) пользователя, выпускает токен
// и отправляет письмо со ссылкой. Старые неиспользованные токены гаснут.
func (s *MagicService) Request(ctx context.Context, email string) error {
	user, _, err := s.users.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return repo.ErrInactive
	}

	token, err := GenerateToken()
	if err != nil {
		return err
	}
	expiresAt := s.Now().UTC().Add(s.ttl)
	if _, err := s.tokens.IssueMagic(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/dashboard?token=%s", s.frontendURL, url.QueryEscape(token))
	if err := s.mailer.SendMagicLink(ctx, user.Email, link); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}
	return nil
}

// Verify гасит токен и возвращает подтверждённого пользователя.
func (s *MagicService) Verify(ctx context.Context, token string) (*models.User, error) {
	return s.tokens.ConsumeMagic(ctx, token, s.Now().UTC())
}
