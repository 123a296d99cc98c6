package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/models"
)

func TestUpdateUserConflicts(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "boss", true)
	alice := f.newUser(t, "alice", false)
	f.newUser(t, "bob", false)

	// чужой username занят
	w := f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.ID),
		map[string]any{"username": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// чужой email тоже
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.ID),
		map[string]any{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// собственные значения конфликтом не считаются
	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.ID),
		map[string]any{"username": "alice", "first_name": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	u := decodeJSON[models.User](t, w)
	assert.Equal(t, "Alice", u.FirstName)
}

func TestCreateUserRequiresStaff(t *testing.T) {
	f := newAPIFixture(t)
	f.current = f.newUser(t, "user", false)

	w := f.do(t, http.MethodPost, "/api/v1/users",
		map[string]any{"username": "new", "email": "new@example.com", "password": "pw"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
