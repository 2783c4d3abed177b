package handler

import (
	"context"
	"net/http"

	"go-micropost/pkg/apierror"
)

type dbPinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports liveness; with a database attached it also
// verifies connectivity.
type HealthHandler struct {
	db dbPinger
}

func NewHealthHandler(db dbPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Health(r.Context()); err != nil {
			writeError(w, apierror.New("UNAVAILABLE", "database unreachable", "", http.StatusServiceUnavailable))
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"}, nil)
}
