package handler

import (
	"context"
	"net/http"

	"go-micropost/internal/middleware"
	"go-micropost/internal/model"
	"go-micropost/internal/service"
	"go-micropost/pkg/apierror"
)

type RelationshipHandler struct {
	relationships *service.RelationshipService
}

func NewRelationshipHandler(relationships *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

func (h *RelationshipHandler) Follow(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	followedID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.relationships.Follow(r.Context(), claims.UserID, followedID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"following": true}, nil)
}

func (h *RelationshipHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	followedID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.relationships.Unfollow(r.Context(), claims.UserID, followedID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"following": false}, nil)
}

func (h *RelationshipHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listEdge(w, r, h.relationships.Followers)
}

func (h *RelationshipHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.listEdge(w, r, h.relationships.Following)
}

func (h *RelationshipHandler) listEdge(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error)) {

	userID, err := idParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	page, limit, offset := pagination(r)
	users, total, err := list(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, model.NewMeta(page, limit, total))
}
