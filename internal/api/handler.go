// Package api provides HTTP handlers for the webhook service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

// Dispatcher processes one inbound message.
type Dispatcher interface {
	Handle(ctx context.Context, msg domain.Inbound)
}

// StatusReporter reports the health of the session store.
type StatusReporter interface {
	Status(ctx context.Context) string
}

// Handler provides common handler utilities.
type Handler struct {
	dispatcher Dispatcher
	store      StatusReporter
	logger     *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(dispatcher Dispatcher, store StatusReporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
