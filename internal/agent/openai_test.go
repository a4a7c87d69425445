package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

type recordedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type recordedRequest struct {
	Model    string            `json:"model"`
	Messages []recordedMessage `json:"messages"`
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	var got recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Olá!  "}}]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL+"/", "sk-test", "gpt-4o-mini", time.Second)
	text, err := client.Complete(context.Background(), []domain.Turn{
		{Role: domain.RoleSystem, Content: "persona"},
		{Role: domain.RoleUser, Content: "oi"},
		{Role: domain.RoleAssistant, Content: "Olá"},
		{Role: domain.RoleUser, Content: "tudo bem?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá!", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, []recordedMessage{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "oi"},
		{Role: "assistant", Content: "Olá"},
		{Role: "user", Content: "tudo bem?"},
	}, got.Messages)
	assert.Equal(t, "openai:gpt-4o-mini", client.Name())
}

func TestOpenAIClientCompleteError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt", time.Second)
	_, err := client.Complete(context.Background(), []domain.Turn{{Role: domain.RoleUser, Content: "oi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOpenAIClientNoChoicesIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "sk-test", "gpt", time.Second)
	text, err := client.Complete(context.Background(), []domain.Turn{{Role: domain.RoleUser, Content: "oi"}})
	require.NoError(t, err)
	assert.Empty(t, text)
}
