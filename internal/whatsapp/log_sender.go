package whatsapp

import (
	"context"
	"log/slog"
	"strings"
)

// LogSender is a dry-run transport that logs outbound messages instead of
// delivering them. It is used when no Cloud API token is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a dry-run sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (l *LogSender) Send(_ context.Context, to, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	l.logger.Info("dry-run outbound message", "to", to, "text", text)
	return nil
}
