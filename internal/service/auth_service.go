package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-micropost/internal/event"
	"go-micropost/internal/model"
	"go-micropost/internal/token"
	"go-micropost/pkg/apierror"
)

const bcryptCost = 12

type credentialStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}

type AuthService struct {
	users  credentialStore
	tokens *token.Manager
	bus    event.Bus
}

func NewAuthService(users credentialStore, tokens *token.Manager, bus event.Bus) *AuthService {
	return &AuthService{users: users, tokens: tokens, bus: bus}
}

func (s *AuthService) Register(ctx context.Context, email string, name string, password string) (model.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	password = strings.TrimSpace(password)

	if email == "" || !strings.Contains(email, "@") {
		return model.AuthResult{}, apierror.BadRequest("a valid email is required", "email")
	}
	if name == "" {
		return model.AuthResult{}, apierror.BadRequest("name is required", "name")
	}
	if len(password) < 8 {
		return model.AuthResult{}, apierror.BadRequest("password must be at least 8 characters", "password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.AuthResult{}, err
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, model.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Roles:        model.NewRoleSet(model.RoleGeneral),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, model.ErrEmailTaken) {
		return model.AuthResult{}, apierror.Conflict("email already registered", email)
	}
	if err != nil {
		return model.AuthResult{}, err
	}

	signed, err := s.tokens.Issue(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	s.bus.Publish(event.New(event.TypeUserJoined, user.ID, user.Profile()))
	return model.AuthResult{Token: signed, User: user.Profile()}, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (model.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AuthResult{}, apierror.Unauthorized("invalid credentials")
	}
	if err != nil {
		return model.AuthResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.AuthResult{}, apierror.Unauthorized("invalid credentials")
	}

	signed, err := s.tokens.Issue(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{Token: signed, User: user.Profile()}, nil
}

// Me re-fetches the principal behind a verified token. A principal
// deleted after issuance is reported as unauthenticated, not missing.
func (s *AuthService) Me(ctx context.Context, userID int64) (model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.Profile{}, apierror.Unauthorized("account no longer exists")
	}
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
