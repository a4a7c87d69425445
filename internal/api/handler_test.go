//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/epieletronica-png/wa-ia/internal/domain"
	"github.com/epieletronica-png/wa-ia/internal/middleware"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "bad")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"bad"}`, w.Body.String())
}

// recordingDispatcher collects dispatched messages.
type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []domain.Inbound
	ctxs []context.Context
}

func (d *recordingDispatcher) Handle(ctx context.Context, msg domain.Inbound) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	d.ctxs = append(d.ctxs, ctx)
}

type staticStatus string

func (s staticStatus) Status(context.Context) string { return string(s) }

// newTestServer builds the routes. An empty secret accepts unsigned posts.
func newTestServer(t *testing.T, secret string) (*chi.Mux, *WebhookHandler, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	base := NewHandler(d, staticStatus("degraded"), nil)
	wh := NewWebhookHandler(base, "verify-me", secret, secret == "")

	r := chi.NewRouter()
	wh.RegisterRoutes(r)
	NewHealthHandler(base).RegisterHealth(r)
	return r, wh, d
}

const twoMessages = `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[
	{"from":"5511911112222","id":"a","timestamp":"1","type":"text","text":{"body":"oi"}},
	{"from":"5511933334444","id":"b","timestamp":"2","type":"text","text":{"body":"humano"}}
]}}]}]}`

const operatorCommand = `{"entry":[{"changes":[{"value":{"messages":[
	{"from":"5511900000001","id":"c","timestamp":"3","type":"text","text":{"body":"/fechar 5511911112222"}}
]}}]}]}`

func TestWebhookVerify(t *testing.T) {
	r, _, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookReceiveDispatchesMessages(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, wh, d := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(twoMessages))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	wh.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","messages":2}`, rec.Body.String())

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.msgs, 2)
	froms := []string{d.msgs[0].From, d.msgs[1].From}
	assert.ElementsMatch(t, []string{"5511911112222", "5511933334444"}, froms)
	for _, ctx := range d.ctxs {
		assert.NoError(t, ctx.Err(), "dispatch context must outlive the request")
	}
}

func TestWebhookReceiveMalformed(t *testing.T) {
	r, wh, d := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"entry":`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	wh.Wait()

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, d.msgs)
}

func TestWebhookReceiveSignature(t *testing.T) {
	r, wh, d := newTestServer(t, "app-secret")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(twoMessages))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(twoMessages))
	req.Header.Set(middleware.SignatureHeader, middleware.Sign("app-secret", []byte(twoMessages)))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	wh.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.msgs, 2)
}

func TestWebhookReceiveRefusedWithoutSecret(t *testing.T) {
	d := &recordingDispatcher{}
	wh := NewWebhookHandler(NewHandler(d, staticStatus("ok"), nil), "verify-me", "", false)
	r := chi.NewRouter()
	wh.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(operatorCommand))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	wh.Wait()

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, d.msgs, "unsigned operator commands must never reach the router")

	req = httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=7", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "subscription handshake stays available")
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"degraded"}`, rec.Body.String())
}
