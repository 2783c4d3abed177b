package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-micropost/internal/model"
)

type tokenVerifier interface {
	Verify(tokenString string) (*model.Claims, error)
}

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// AuthMiddleware is the request guard. Routes not wrapped by it are
// public; RequireAuth enforces a verified token; RequireRoles adds a
// role requirement on top.
type AuthMiddleware struct {
	verifier   tokenVerifier
	cookieName string
}

func NewAuthMiddleware(verifier tokenVerifier, cookieName string) *AuthMiddleware {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = "jwt"
	}
	return &AuthMiddleware{verifier: verifier, cookieName: cookieName}
}

// ReadToken extracts the credential from the request: the auth cookie
// wins over the Authorization header when both are present.
func (m *AuthMiddleware) ReadToken(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := m.ReadToken(r)
		if tokenString == "" {
			writeDenied(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := m.verifier.Verify(tokenString)
		if err != nil {
			writeDenied(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeDenied(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			for _, role := range allowedRoles {
				if claims.Roles.Has(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeDenied(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		})
	}
}

// RequireAdmin is the admin gate used by the admin route group.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRoles(model.RoleAdmin)(next)
}

func ClaimsFromContext(ctx context.Context) (*model.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*model.Claims)
	return claims, ok && claims != nil
}

// WithClaims is a test seam for handlers that read the principal.
func WithClaims(ctx context.Context, claims *model.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func writeDenied(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
