package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, salt, err := HashPassword("s3cret-passw0rd")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEmpty(t, salt)

	assert.True(t, VerifyPassword(hash, salt, "s3cret-passw0rd"))
	assert.False(t, VerifyPassword(hash, salt, "wrong-password"))
	assert.False(t, VerifyPassword(hash, salt, ""))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, s1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, s2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}
