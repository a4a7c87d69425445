package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// NewCompleter builds the completion client selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case ProviderMock:
		slog.Info("AI_PROVIDER=mock, using mock completion client")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
