package api

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/epieletronica-png/wa-ia/internal/middleware"
	"github.com/epieletronica-png/wa-ia/internal/whatsapp"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives WhatsApp Cloud API notifications.
type WebhookHandler struct {
	*Handler
	verifyToken   string
	appSecret     string
	allowUnsigned bool
	inflight      sync.WaitGroup
}

// NewWebhookHandler creates a webhook handler. Notifications are refused
// when appSecret is empty, unless allowUnsigned is set.
func NewWebhookHandler(base *Handler, verifyToken, appSecret string, allowUnsigned bool) *WebhookHandler {
	return &WebhookHandler{
		Handler:       base,
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		allowUnsigned: allowUnsigned,
	}
}

// RegisterRoutes registers webhook routes.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Route("/webhook", func(r chi.Router) {
		r.Get("/", h.Verify)
		r.With(middleware.Signature(h.appSecret, h.allowUnsigned)).Post("/", h.Receive)
	})
}

// Verify answers the subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.verifyToken == "" || q.Get("hub.verify_token") != h.verifyToken {
		h.logger.Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
		Error(w, http.StatusForbidden, "verification failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// Receive acknowledges a notification and routes its messages in the
// background. Processing outlives the request.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	msgs, err := whatsapp.ParseWebhook(body)
	if err != nil {
		h.logger.Warn("malformed webhook payload", "error", err)
		Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	for _, msg := range msgs {
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			defer func() {
				if rec := recover(); rec != nil {
					h.logger.Error("panic while routing message", "from", msg.From, "panic", rec)
				}
			}()
			h.dispatcher.Handle(ctx, msg)
		}()
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"messages": len(msgs),
	})
}

// Wait blocks until every dispatched message has been processed.
func (h *WebhookHandler) Wait() {
	h.inflight.Wait()
}
