package handler

import (
	"context"
	"net/http"
	"time"

	"med-connect/internal/model"
	"med-connect/pkg/apierror"
)

type HealthHandler struct {
	store string
	ping  func(ctx context.Context) error
}

// NewHealthHandler reports liveness; ping may be nil for stores without a remote backend.
func NewHealthHandler(store string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{store: store, ping: ping}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.ping(ctx); err != nil {
			writeError(w, apierror.New("STORE_UNAVAILABLE", "store did not answer", h.store, http.StatusServiceUnavailable))
			return
		}
	}

	writeSuccess(w, http.StatusOK, model.HealthData{Status: "ok", Store: h.store}, nil)
}
