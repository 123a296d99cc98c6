package authapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"atrium/internal/auth"
	"atrium/internal/logs"
	"atrium/internal/models"
	"atrium/internal/repo"
)

const stateCookie = "oauth_state"

// Handler обслуживает /auth/*: Google OAuth, magic-link, refresh, logout.
type Handler struct {
	users  *repo.UserStore
	tokens *repo.TokenStore
	ts     *auth.TokenService
	magic  *auth.MagicService
	google *auth.GoogleProvider
}

func NewHandler(users *repo.UserStore, tokens *repo.TokenStore, ts *auth.TokenService, magic *auth.MagicService, google *auth.GoogleProvider) *Handler {
	return &Handler{users: users, tokens: tokens, ts: ts, magic: magic, google: google}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// AuthResponse — единый ответ всех веток, выдающих пару токенов.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         *models.User `json:"user"`
}

func (h *Handler) respondPair(w http.ResponseWriter, user *models.User) {
	access, refresh, err := h.ts.IssuePair(user)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         user,
	})
}

// GET /auth/google/login — редирект на consent-экран Google.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Configured() {
		models.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable",
			"google oauth is not configured", nil)
		return
	}
	state, err := auth.GenerateToken()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusFound)
}

// GET /auth/google/callback — обмен кода на профиль и выпуск токенов.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || r.URL.Query().Get("state") != c.Value {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "oauth state mismatch", nil)
		return
	}
	// state одноразовый
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth/google", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "authorization code is required", nil)
		return
	}
	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		logs.Logger.Warnf("google exchange failed: %v", err)
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "authentication failed", nil)
		return
	}
	user, err := h.users.UpsertFromGoogle(r.Context(), profile.Sub, profile.Email, profile.Name, profile.Picture)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	if !user.IsActive {
		models.WriteProblem(w, http.StatusForbidden, "Forbidden", "user account is deactivated", nil)
		return
	}
	h.respondPair(w, user)
}

type magicRequestIn struct {
	Email string `json:"email"`
}

// POST /auth/magic/request
func (h *Handler) MagicRequest(w http.ResponseWriter, r *http.Request) {
	var in magicRequestIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid request body", nil)
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "a valid email is required", nil)
		return
	}

	switch err := h.magic.Request(r.Context(), email); {
	case errors.Is(err, repo.ErrInactive):
		models.WriteProblem(w, http.StatusForbidden, "Forbidden", "user account is deactivated", nil)
		return
	case err != nil:
		logs.Logger.Errorf("magic link request for %s failed: %v", email, err)
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to send magic link email", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Magic link sent! Check your email to sign in.",
	})
}

type magicVerifyIn struct {
	Token string `json:"token"`
}

// POST /auth/magic/verify
func (h *Handler) MagicVerify(w http.ResponseWriter, r *http.Request) {
	var in magicVerifyIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Token == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "token is required", nil)
		return
	}

	user, err := h.magic.Verify(r.Context(), in.Token)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid or expired magic link", nil)
		return
	case errors.Is(err, repo.ErrTokenUsed):
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "magic link has already been used", nil)
		return
	case errors.Is(err, repo.ErrTokenExpired):
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "magic link has expired", nil)
		return
	case errors.Is(err, repo.ErrInactive):
		models.WriteProblem(w, http.StatusForbidden, "Forbidden", "user account is deactivated", nil)
		return
	case err != nil:
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	h.respondPair(w, user)
}

type refreshIn struct {
	RefreshToken string `json:"refresh_token"`
	Refresh      string `json:"refresh"` // совместимость со старым клиентом
}

func (in *refreshIn) token() string {
	if in.RefreshToken != "" {
		return in.RefreshToken
	}
	return in.Refresh
}

// POST /auth/refresh — новая пара по refresh-токену.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.token() == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "refresh token is required", nil)
		return
	}

	claims, err := h.ts.Verify(in.token(), auth.TypeRefresh)
	switch {
	case errors.Is(err, auth.ErrExpired):
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "refresh token has expired", nil)
		return
	case errors.Is(err, auth.ErrWrongType):
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token type", nil)
		return
	case err != nil:
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid refresh token", nil)
		return
	}

	revoked, err := h.tokens.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	if revoked {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "refresh token has been revoked", nil)
		return
	}

	uid, err := claims.UserID()
	if err != nil {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid refresh token", nil)
		return
	}
	user, err := h.users.ByID(r.Context(), uid)
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
	h.respondPair(w, user)
}

type loginIn struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /auth/login — парольный вход для enterprise-учёток.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "username and password are required", nil)
		return
	}

	user, err := h.users.ByUsername(r.Context(), in.Username)
	if errors.Is(err, repo.ErrNotFound) {
		// логин допускаем и по почте
		user, err = h.users.ByEmail(r.Context(), in.Username)
	}
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !auth.VerifyPassword(user.PasswordHash, user.PasswordSalt, in.Password)) {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid credentials", nil)
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

	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i > 0 {
		ip = ip[:i]
	}
	_ = h.users.TouchLogin(r.Context(), user.ID, ip)

	h.respondPair(w, user)
}

// POST /auth/logout — гасим refresh-токен в чёрном списке.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.token() == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "refresh token is required", nil)
		return
	}

	claims, err := h.ts.Verify(in.token(), auth.TypeRefresh)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid token or token is expired", nil)
		return
	}
	uid, _ := claims.UserID()
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := h.tokens.Revoke(r.Context(), claims.ID, uid, exp); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusResetContent, map[string]string{"message": "Successfully logged out."})
}

// GET /auth/me — текущий пользователь (за auth-middleware).
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r)
	if user == nil {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required", nil)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
