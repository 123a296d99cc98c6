package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"atrium/internal/models"
	"atrium/internal/repo"
)

type ctxKey string

const userKey ctxKey = "current_user"

// Middleware проверяет Bearer access-токен и кладёт пользователя в контекст.
func Middleware(tokens *TokenService, users *repo.UserStore) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, p) {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"missing or invalid authorization header", nil)
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(header, p), TypeAccess)
			if err != nil {
				detail := "invalid token"
				if errors.Is(err, ErrExpired) {
					detail = "token has expired"
				} else if errors.Is(err, ErrWrongType) {
					detail = "invalid token type"
				}
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", detail, nil)
				return
			}

			uid, err := claims.UserID()
			if err != nil {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token", nil)
				return
			}
			user, err := users.ByID(r.Context(), uid)
			if errors.Is(err, repo.ErrNotFound) {
				models.WriteProblem(w, http.StatusNotFound, "Not Found", "user not found", nil)
				return
			}
			if err != nil {
				models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
				return
			}
			if !user.IsActive {
				models.WriteProblem(w, http.StatusForbidden, "Forbidden", "user account is deactivated", nil)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser достаёт пользователя, положенного Middleware-ом.
func CurrentUser(r *http.Request) *models.User {
	v := r.Context().Value(userKey)
	if u, ok := v.(*models.User); ok {
		return u
	}
	return nil
}

// WithUser — для тестов хендлеров: подкладывает пользователя в контекст запроса.
func WithUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, u))
}
