package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-micropost/internal/model"
)

func testUser() model.User {
	return model.User{
		ID:    1,
		Name:  "Alice",
		Email: "alice@example.com",
		Roles: model.NewRoleSet(model.RoleGeneral),
	}
}

func TestManager_RoundTrip(t *testing.T) {
	mgr, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	signed, err := mgr.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := mgr.Verify(signed)
	require.NoError(t, err)

	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, model.NewRoleSet(model.RoleGeneral), claims.Roles)
	assert.NotEmpty(t, claims.TokenID)
}

func TestManager_SnapshotIsFrozen(t *testing.T) {
	mgr, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	user := testUser()
	signed, err := mgr.Issue(user)
	require.NoError(t, err)

	// Mutating the user after issuance must not affect the token.
	user.Name = "Renamed"
	user.Roles = model.NewRoleSet(model.RoleAdmin)

	claims, err := mgr.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "Alice", claims.Name)
	assert.False(t, claims.IsAdmin())
}

func TestManager_TwoTokensBothValid(t *testing.T) {
	mgr, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	first, err := mgr.Issue(testUser())
	require.NoError(t, err)
	second, err := mgr.Issue(testUser())
	require.NoError(t, err)

	// Distinct jti, no single-use invalidation.
	assert.NotEqual(t, first, second)

	_, err = mgr.Verify(first)
	assert.NoError(t, err)
	_, err = mgr.Verify(second)
	assert.NoError(t, err)
}

func TestManager_Expired(t *testing.T) {
	mgr, err := NewManager("test-secret", time.Nanosecond)
	require.NoError(t, err)

	signed, err := mgr.Issue(testUser())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = mgr.Verify(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestManager_WrongSecret(t *testing.T) {
	issuer, err := NewManager("secret-a", time.Hour)
	require.NoError(t, err)
	verifier, err := NewManager("secret-b", time.Hour)
	require.NoError(t, err)

	signed, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.Error(t, err)
}

func TestManager_GarbageToken(t *testing.T) {
	mgr, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := mgr.Verify(tokenString)
		assert.Error(t, err, "token %q should be rejected", tokenString)
	}
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)

	_, err = NewManager("   ", time.Hour)
	assert.Error(t, err)

	_, err = NewManager("secret", 0)
	assert.Error(t, err)
}
