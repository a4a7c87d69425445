package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthHandler reports service health.
type HealthHandler struct {
	*Handler
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(base *Handler) *HealthHandler {
	return &HealthHandler{Handler: base}
}

// RegisterHealth registers the health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health reports the session store status. A degraded store still serves
// traffic from memory, so the response is always 200.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  h.store.Status(ctx),
	})
}
