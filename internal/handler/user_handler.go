package handler

import (
	"encoding/json"
	"net/http"

	"go-micropost/internal/middleware"
	"go-micropost/internal/model"
	"go-micropost/internal/service"
	"go-micropost/pkg/apierror"
)

type UserHandler struct {
	users         *service.UserService
	maxUploadSize int64
}

func NewUserHandler(users *service.UserService, maxUploadSize int64) *UserHandler {
	return &UserHandler{users: users, maxUploadSize: maxUploadSize}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), claims.UserID, payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

// UploadAvatar accepts a multipart form with an "avatar" file field.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	file, _, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, apierror.BadRequest("avatar file is required", "avatar"))
		return
	}
	defer file.Close()

	profile, err := h.users.SetAvatar(r.Context(), claims.UserID, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	file, info, err := h.users.Avatar(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}
