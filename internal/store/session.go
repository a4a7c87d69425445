package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

// Kind names one of the per-user session records.
type Kind string

const (
	// KindContext holds the JSON-encoded conversation turns.
	KindContext Kind = "ctx"
	// KindMode holds the conversation mode.
	KindMode Kind = "mode"
	// KindTicket is a presence sentinel for an open ticket.
	KindTicket Kind = "ticket"
	// KindPreview holds the staged operator reply.
	KindPreview Kind = "preview"
)

const (
	// DefaultSessionTTL is the retention for mode, context and ticket.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultPreviewTTL is the retention for a staged preview.
	DefaultPreviewTTL = 15 * time.Minute

	ticketSentinel = "open"
)

func key(kind Kind, user string) string {
	return string(kind) + ":" + user
}

// Options configures a SessionStore.
type Options struct {
	SessionTTL time.Duration
	PreviewTTL time.Duration
	Logger     *slog.Logger
	// Now drives expiry in the in-memory tier. Defaults to time.Now.
	Now func() time.Time
}

// SessionStore is the two-tier session store. Every operation is first tried
// against the durable primary backend; when that fails the failure is logged
// and the operation is served by an in-process MemoryBackend with the same
// TTL semantics. No method returns an error.
//
// With a nil primary the store runs on memory alone.
type SessionStore struct {
	primary    Backend
	fallback   *MemoryBackend
	sessionTTL time.Duration
	previewTTL time.Duration
	logger     *slog.Logger
}

// NewSessionStore creates a store over primary, which may be nil.
func NewSessionStore(primary Backend, opts Options) *SessionStore {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.PreviewTTL <= 0 {
		opts.PreviewTTL = DefaultPreviewTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SessionStore{
		primary:    primary,
		fallback:   NewMemoryBackend(opts.Now),
		sessionTTL: opts.SessionTTL,
		previewTTL: opts.PreviewTTL,
		logger:     opts.Logger,
	}
}

func (s *SessionStore) degraded(op string, k string, err error) {
	attrs := []any{"op", op, "key", k, "error", err}
	var be *BackendError
	if errors.As(err, &be) {
		attrs = append(attrs, "backend", be.Backend, "unavailable", be.Unavailable())
	}
	s.logger.Warn("session backend failed, using in-memory fallback", attrs...)
}

// Get returns the value of kind for user.
func (s *SessionStore) Get(ctx context.Context, kind Kind, user string) (string, bool) {
	k := key(kind, user)
	if s.primary != nil {
		v, ok, err := s.primary.Get(ctx, k)
		if err == nil && ok {
			return v, true
		}
		if err != nil {
			s.degraded("get", k, err)
		}
	}
	v, ok, _ := s.fallback.Get(ctx, k)
	return v, ok
}

// Set stores value as kind for user, expiring after ttl.
func (s *SessionStore) Set(ctx context.Context, kind Kind, user, value string, ttl time.Duration) {
	k := key(kind, user)
	if s.primary != nil {
		err := s.primary.Set(ctx, k, value, ttl)
		if err == nil {
			// Drop any copy written during an outage so it cannot shadow
			// later reads.
			_ = s.fallback.Delete(ctx, k)
			return
		}
		s.degraded("set", k, err)
	}
	_ = s.fallback.Set(ctx, k, value, ttl)
}

// Delete removes kind for user.
func (s *SessionStore) Delete(ctx context.Context, kind Kind, user string) {
	k := key(kind, user)
	if s.primary != nil {
		if err := s.primary.Delete(ctx, k); err != nil {
			s.degraded("delete", k, err)
		}
	}
	_ = s.fallback.Delete(ctx, k)
}

// ListKeys returns the user ids that currently hold a record of kind, in
// either tier, sorted.
func (s *SessionStore) ListKeys(ctx context.Context, kind Kind) []string {
	prefix := string(kind) + ":"
	seen := make(map[string]struct{})
	if s.primary != nil {
		keys, err := s.primary.Keys(ctx, prefix)
		if err != nil {
			s.degraded("keys", prefix, err)
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}
	keys, _ := s.fallback.Keys(ctx, prefix)
	for _, k := range keys {
		seen[k] = struct{}{}
	}

	users := make([]string, 0, len(seen))
	for k := range seen {
		users = append(users, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(users)
	return users
}

// Mode returns the conversation mode for user, ModeAI when unset.
func (s *SessionStore) Mode(ctx context.Context, user string) domain.Mode {
	v, _ := s.Get(ctx, KindMode, user)
	return domain.ParseMode(v)
}

// SetMode stores the conversation mode for user.
func (s *SessionStore) SetMode(ctx context.Context, user string, mode domain.Mode) {
	s.Set(ctx, KindMode, user, string(mode), s.sessionTTL)
}

// Context returns the stored conversation turns for user, oldest first.
func (s *SessionStore) Context(ctx context.Context, user string) []domain.Turn {
	v, ok := s.Get(ctx, KindContext, user)
	if !ok || v == "" {
		return nil
	}
	var turns []domain.Turn
	if err := json.Unmarshal([]byte(v), &turns); err != nil {
		s.logger.Warn("discarding undecodable session context", "user_id", user, "error", err)
		return nil
	}
	return turns
}

// SaveContext stores the most recent domain.MaxContextTurns turns for user.
func (s *SessionStore) SaveContext(ctx context.Context, user string, turns []domain.Turn) {
	turns = domain.TrimTurns(turns, domain.MaxContextTurns)
	b, err := json.Marshal(turns)
	if err != nil {
		s.logger.Warn("failed to encode session context", "user_id", user, "error", err)
		return
	}
	s.Set(ctx, KindContext, user, string(b), s.sessionTTL)
}

// OpenTicket marks user as under human handling.
func (s *SessionStore) OpenTicket(ctx context.Context, user string) {
	s.Set(ctx, KindTicket, user, ticketSentinel, s.sessionTTL)
}

// HasTicket reports whether user has an open ticket.
func (s *SessionStore) HasTicket(ctx context.Context, user string) bool {
	_, ok := s.Get(ctx, KindTicket, user)
	return ok
}

// CloseTicket removes the ticket for user and resets the mode to AI.
// Both writes are always attempted; neither depends on the other succeeding.
func (s *SessionStore) CloseTicket(ctx context.Context, user string) {
	s.Delete(ctx, KindTicket, user)
	s.SetMode(ctx, user, domain.ModeAI)
}

// OpenTickets returns the users with an open ticket, sorted.
func (s *SessionStore) OpenTickets(ctx context.Context) []string {
	return s.ListKeys(ctx, KindTicket)
}

// SavePreview stages text for user, replacing any pending preview.
func (s *SessionStore) SavePreview(ctx context.Context, user, text string) {
	s.Set(ctx, KindPreview, user, text, s.previewTTL)
}

// Preview returns the staged preview for user.
func (s *SessionStore) Preview(ctx context.Context, user string) (string, bool) {
	return s.Get(ctx, KindPreview, user)
}

// ClearPreview discards the staged preview for user.
func (s *SessionStore) ClearPreview(ctx context.Context, user string) {
	s.Delete(ctx, KindPreview, user)
}

// Status describes the durable tier for health reporting:
// "memory" with no primary, "ok" when it answers, "degraded" otherwise.
func (s *SessionStore) Status(ctx context.Context) string {
	if s.primary == nil {
		return "memory"
	}
	if err := s.primary.Ping(ctx); err != nil {
		return "degraded"
	}
	return "ok"
}

// Close releases the durable backend.
func (s *SessionStore) Close() error {
	if s.primary == nil {
		return nil
	}
	return s.primary.Close()
}
