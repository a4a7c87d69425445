package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

var errEmptyPolish = errors.New("polish returned empty text")

// Service provides the AI collaborators used by the router.
type Service struct {
	completer Completer
	logger    *slog.Logger
}

// NewService wraps a Completer.
func NewService(completer Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		completer: completer,
		logger:    logger,
	}
}

// Name identifies the underlying completion client for logs.
func (s *Service) Name() string {
	if n, ok := s.completer.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}

// Complete generates the assistant reply for turns.
func (s *Service) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	start := time.Now()
	text, err := s.completer.Complete(ctx, turns)
	if err != nil {
		s.logger.Warn("completion failed", "turns", len(turns), "latency", time.Since(start), "error", err)
		return "", err
	}
	s.logger.Debug("completion done", "turns", len(turns), "latency", time.Since(start), "chars", len(text))
	return text, nil
}

// Polish rewrites an operator reply into a cordial, professional message.
// An empty rewrite is reported as an error so callers keep the original.
func (s *Service) Polish(ctx context.Context, text string) (string, error) {
	out, err := s.completer.Complete(ctx, []domain.Turn{
		{Role: domain.RoleSystem, Content: polishPrompt},
		{Role: domain.RoleUser, Content: text},
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyPolish
	}
	return out, nil
}
