package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-micropost/internal/event"
	"go-micropost/internal/model"
	"go-micropost/internal/token"
	"go-micropost/pkg/apierror"
)

type fakeUserStore struct {
	byID    map[int64]model.User
	byEmail map[string]model.User
	nextID  int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[int64]model.User),
		byEmail: make(map[string]model.User),
		nextID:  1,
	}
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) Create(_ context.Context, u model.User) (model.User, error) {
	if _, exists := s.byEmail[u.Email]; exists {
		return model.User{}, model.ErrEmailTaken
	}
	u.ID = s.nextID
	s.nextID++
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	return u, nil
}

func newAuthService(t *testing.T, users credentialStore) *AuthService {
	t.Helper()
	mgr, err := token.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	return NewAuthService(users, mgr, event.NewBus())
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	assert.Equal(t, status, apiErr.HTTPStatus)
}

func TestAuthService_Register(t *testing.T) {
	store := newFakeUserStore()
	svc := newAuthService(t, store)

	result, err := svc.Register(context.Background(), "Alice@Example.com", "Alice", "password123")
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, []string{"general"}, result.User.Roles.Strings())

	stored, err := store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthService(t, newFakeUserStore())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		userName string
		password string
	}{
		{"missing email", "", "Alice", "password123"},
		{"malformed email", "not-an-email", "Alice", "password123"},
		{"missing name", "alice@example.com", "", "password123"},
		{"short password", "alice@example.com", "Alice", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.userName, tt.password)
			assertStatus(t, err, 400)
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc := newAuthService(t, newFakeUserStore())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "Someone Else", "otherpassword")
	assertStatus(t, err, 409)
}

func TestAuthService_Login(t *testing.T) {
	store := newFakeUserStore()
	svc := newAuthService(t, store)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)

	result, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, registered.User.ID, result.User.ID)
}

func TestAuthService_Login_BadCredentials(t *testing.T) {
	svc := newAuthService(t, newFakeUserStore())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "wrongpassword")
		assertStatus(t, err, 401)
	})

	t.Run("unknown email", func(t *testing.T) {
		// Unknown principals get the same answer as bad passwords.
		_, err := svc.Login(ctx, "nobody@example.com", "password123")
		assertStatus(t, err, 401)
	})
}

func TestAuthService_Me(t *testing.T) {
	store := newFakeUserStore()
	svc := newAuthService(t, store)
	ctx := context.Background()

	result, err := svc.Register(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)

	profile, err := svc.Me(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)

	// A principal deleted after issuance reads as unauthenticated.
	delete(store.byID, result.User.ID)
	_, err = svc.Me(ctx, result.User.ID)
	assertStatus(t, err, 401)
}
