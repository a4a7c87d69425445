package agent

import (
	"context"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

// Completer generates the next assistant message for a conversation.
// Turns are ordered oldest first; a leading system turn carries the persona.
type Completer interface {
	Complete(ctx context.Context, turns []domain.Turn) (string, error)
}

// Ensure the clients implement Completer.
var (
	_ Completer = (*GeminiClient)(nil)
	_ Completer = (*OpenAIClient)(nil)
	_ Completer = (*MockClient)(nil)
	_ Completer = (*Service)(nil)
)
