package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go-micropost/internal/middleware"
	"go-micropost/internal/model"
	"go-micropost/internal/service"
	"go-micropost/pkg/apierror"
)

type AuthHandler struct {
	service    *service.AuthService
	cookieName string
	secure     bool
}

func NewAuthHandler(service *service.AuthService, cookieName string, secure bool) *AuthHandler {
	return &AuthHandler{service: service, cookieName: cookieName, secure: secure}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	result, err := h.service.Register(r.Context(), payload.Email, payload.Name, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookie(w, result.Token)
	writeSuccess(w, http.StatusCreated, result, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	result, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookie(w, result.Token)
	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookie(w)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	profile, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

// setAuthCookie writes the session cookie. Max-Age mirrors the token
// TTL so the cookie and signature expire together.
func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, tokenString string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(h.service.TokenTTL() / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
