package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"go-micropost/internal/middleware"
	"go-micropost/internal/model"
	"go-micropost/internal/service"
	"go-micropost/pkg/apierror"
)

type MicropostHandler struct {
	posts         *service.MicropostService
	maxUploadSize int64
}

func NewMicropostHandler(posts *service.MicropostService, maxUploadSize int64) *MicropostHandler {
	return &MicropostHandler{posts: posts, maxUploadSize: maxUploadSize}
}

// Create accepts either a JSON body {content} or a multipart form with
// "content" plus an optional "image" file.
func (h *MicropostHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	content, image, cleanup, err := h.readCreatePayload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	post, err := h.posts.Create(r.Context(), claims, content, image)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, post, nil)
}

func (h *MicropostHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Get(r.Context(), viewerID(claims), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, post, nil)
}

func (h *MicropostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.Delete(r.Context(), claims, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *MicropostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	page, limit, offset := pagination(r)
	posts, total, err := h.posts.Feed(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, posts, model.NewMeta(page, limit, total))
}

func (h *MicropostHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	userID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	page, limit, offset := pagination(r)
	posts, total, err := h.posts.ListByUser(r.Context(), viewerID(claims), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, posts, model.NewMeta(page, limit, total))
}

func (h *MicropostHandler) Like(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.Like(r.Context(), claims, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"liked": true}, nil)
}

func (h *MicropostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.Unlike(r.Context(), claims, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"liked": false}, nil)
}

func (h *MicropostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	comment, err := h.posts.AddComment(r.Context(), claims, id, payload.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, comment, nil)
}

func (h *MicropostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	page, limit, offset := pagination(r)
	comments, total, err := h.posts.ListComments(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, comments, model.NewMeta(page, limit, total))
}

func (h *MicropostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	id, err := idParam(r, "comment_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.DeleteComment(r.Context(), claims, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *MicropostHandler) Image(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	id, err := idParam(r, "micropost_id")
	if err != nil {
		writeError(w, err)
		return
	}

	file, info, err := h.posts.Image(r.Context(), viewerID(claims), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (h *MicropostHandler) readCreatePayload(w http.ResponseWriter, r *http.Request) (string, io.Reader, func(), error) {
	noop := func() {}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return "", nil, noop, apierror.BadRequest("invalid multipart form", "")
		}

		content := r.FormValue("content")
		file, _, err := r.FormFile("image")
		if err != nil {
			// Image is optional; only the content field is required.
			return content, nil, noop, nil
		}
		return content, file, func() { _ = file.Close() }, nil
	}

	defer r.Body.Close()
	var payload model.CreateMicropostRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return "", nil, noop, apierror.BadRequest("invalid JSON body", "")
	}
	return payload.Content, nil, noop, nil
}

func viewerID(claims *model.Claims) int64 {
	if claims == nil {
		return 0
	}
	return claims.UserID
}
