// Package token issues and verifies the signed session tokens that carry
// a principal snapshot. Tokens are self-contained: nothing is persisted
// server-side and verification never touches the database.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-micropost/internal/model"
	"go-micropost/pkg/apierror"
)

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a snapshot of the user as it exists right now. Two calls
// for the same user yield two independently valid tokens.
func (m *Manager) Issue(user model.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"roles": user.Roles.Strings(),
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates the signature and expiry and recovers the principal
// snapshot frozen at issuance time.
func (m *Manager) Verify(tokenString string) (*model.Claims, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(tokenString), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierror.Unauthorized("token expired")
		}
		return nil, apierror.Unauthorized("invalid token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	claims := &model.Claims{}
	claims.UserID = numericClaim(claimsMap["sub"])
	claims.Name, _ = claimsMap["name"].(string)
	claims.Email, _ = claimsMap["email"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)
	claims.Roles = roleClaim(claimsMap["roles"])

	if claims.UserID <= 0 {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	return claims, nil
}

// numericClaim accepts the shapes jwt.MapClaims produces for numbers:
// float64 after a decode round-trip, int64 when issued in-process.
func numericClaim(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func roleClaim(v any) model.RoleSet {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	names := make([]model.Role, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		names = append(names, model.ParseRole(s))
	}
	return model.NewRoleSet(names...)
}
