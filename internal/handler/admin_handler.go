package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go-micropost/internal/middleware"
	"go-micropost/internal/model"
	"go-micropost/internal/service"
	"go-micropost/pkg/apierror"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Welcome is a probe route behind the admin gate; it confirms the role
// check passed and greets the caller by name.
func (h *AdminHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Welcome, %s", claims.Name),
	}, nil)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r)
	users, total, err := h.admin.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, model.NewMeta(page, limit, total))
}

func (h *AdminHandler) ReplaceRoles(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	userID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	profile, err := h.admin.ReplaceRoles(r.Context(), claims, userID, payload.Roles)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	userID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.admin.DeleteUser(r.Context(), claims, userID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *AdminHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.admin.Rankings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, rankings, nil)
}

func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r)
	entries, total, err := h.admin.AuditTrail(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, model.NewMeta(page, limit, total))
}
