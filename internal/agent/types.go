// Package agent implements the AI collaborators: chat completion for
// end-user turns and polishing of operator replies.
package agent

import (
	"errors"
	"time"
)

// ErrNotConfigured is returned when a provider lacks its credentials.
var ErrNotConfigured = errors.New("agent: provider not configured")

// Provider names a completion backend.
type Provider string

const (
	// ProviderGemini uses Google's Gemini API through the genai SDK.
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI uses any OpenAI-compatible /v1/chat/completions endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderMock answers locally without a network call.
	ProviderMock Provider = "mock"
)

// Config holds agent configuration.
type Config struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderGemini,
		Model:    "gemini-2.0-flash",
		BaseURL:  "https://api.openai.com",
		Timeout:  30 * time.Second,
	}
}

// DefaultSystemPrompt frames the assistant as a formal, concise support agent.
const DefaultSystemPrompt = "Você é o assistente virtual de atendimento ao cliente. " +
	"Responda em português, de forma formal, educada e concisa. " +
	"Se não souber a resposta, diga que um atendente humano pode ajudar e que basta pedir por um técnico."

// polishPrompt instructs the model to rewrite an operator reply.
const polishPrompt = "Reescreva a mensagem a seguir para enviá-la a um cliente: " +
	"mantenha o sentido, corrija a ortografia e use um tom cordial e profissional. " +
	"Responda somente com o texto reescrito, sem comentários."
