package repo

import "errors"

// Сигнальные ошибки хранилищ; хендлеры мапят их на HTTP-статусы.
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrInactive     = errors.New("user account is deactivated")
	ErrTokenUsed    = errors.New("magic link has already been used")
	ErrTokenExpired = errors.New("magic link has expired")
	ErrNotMember    = errors.New("user is not a member of this project")
	ErrNotAssigned  = errors.New("user is not assigned to this task")
)
