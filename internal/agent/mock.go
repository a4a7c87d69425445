package agent

import (
	"context"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

// MockClient is a local Completer for development without an API key.
type MockClient struct{}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete echoes the latest user turn.
func (m *MockClient) Complete(_ context.Context, turns []domain.Turn) (string, error) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser {
			return "Recebemos sua mensagem: " + turns[i].Content, nil
		}
	}
	return "Olá! Como posso ajudar?", nil
}

// Name returns the client name.
func (m *MockClient) Name() string {
	return "mock"
}
