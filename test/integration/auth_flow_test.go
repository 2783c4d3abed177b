//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-micropost/internal/model"
)

func TestAuthFlow(t *testing.T) {
	env := newServer(t)

	cookie, profile := env.registerUser(t, "alice@example.com", "Alice", "password123")
	assert.Equal(t, "Alice", profile.Name)
	assert.True(t, cookie.HttpOnly)

	meResp := env.do(t, http.MethodGet, "/api/v1/auth/me", cookie, nil)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	me := decodeData[model.Profile](t, meResp)
	assert.Equal(t, profile.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)

	// Protected routes reject the anonymous client.
	feedResp := env.do(t, http.MethodGet, "/api/v1/feed", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, feedResp.StatusCode)

	logoutResp := env.do(t, http.MethodPost, "/api/v1/auth/logout", cookie, nil)
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)
	for _, c := range logoutResp.Cookies() {
		if c.Name == "jwt" {
			assert.Empty(t, c.Value)
			assert.Less(t, c.MaxAge, 0)
		}
	}

	// Logout is stateless: a fresh login works with the same password.
	relogin := env.login(t, "alice@example.com", "password123")
	assert.NotEmpty(t, relogin.Value)
}

func TestAuthFlow_DuplicateEmail(t *testing.T) {
	env := newServer(t)
	env.registerUser(t, "alice@example.com", "Alice", "password123")

	resp := env.do(t, http.MethodPost, "/api/v1/auth/register", nil, map[string]string{
		"email":    "alice@example.com",
		"name":     "Impostor",
		"password": "password456",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuthFlow_DeletedPrincipal(t *testing.T) {
	env := newServer(t)
	cookie, profile := env.registerUser(t, "alice@example.com", "Alice", "password123")

	env.state.mu.Lock()
	delete(env.state.users, profile.ID)
	env.state.mu.Unlock()

	// The token still verifies, but the principal is gone.
	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", cookie, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthIsPublic(t *testing.T) {
	env := newServer(t)
	resp := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
