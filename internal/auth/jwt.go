package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"atrium/internal/models"
)

// Дискриминатор типа токена в claims.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrExpired   = errors.New("token has expired")
	ErrInvalid   = errors.New("invalid token")
	ErrWrongType = errors.New("invalid token type")
)

// Claims — полезная нагрузка наших HS256-токенов.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Type  string `json:"type"`
}

// UserID извлекает идентификатор пользователя из sub.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalid
	}
	return uint(id), nil
}

// TokenService выпускает и проверяет пары access/refresh токенов.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Подменяется в тестах.
	Now func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		Now:        time.Now,
	}
}

func (s *TokenService) issue(u *models.User, typ string, ttl time.Duration) (string, error) {
	now := s.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email: u.Email,
		Type:  typ,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *TokenService) IssueAccess(u *models.User) (string, error) {
	return s.issue(u, TypeAccess, s.accessTTL)
}

func (s *TokenService) IssueRefresh(u *models.User) (string, error) {
	return s.issue(u, TypeRefresh, s.refreshTTL)
}

// IssuePair выпускает access+refresh за один вызов.
func (s *TokenService) IssuePair(u *models.User) (access, refresh string, err error) {
	if access, err = s.IssueAccess(u); err != nil {
		return "", "", err
	}
	if refresh, err = s.IssueRefresh(u); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify разбирает токен, проверяет подпись, срок и тип.
func (s *TokenService) Verify(token, wantType string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return s.Now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}
	return &claims, nil
}
