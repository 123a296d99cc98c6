package auth

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Параметры argon2id; при изменении старые хеши перестанут сходиться.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword возвращает argon2id-хеш пароля и случайную соль.
func HashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, err
	}
	hash = argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hash, salt, nil
}

// VerifyPassword сверяет кандидата с сохранённым хешем за константное время.
func VerifyPassword(hash, salt []byte, candidate string) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	h := argon2.IDKey([]byte(candidate), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(h, hash) == 1
}
