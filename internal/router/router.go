// Package router holds the conversation state machine. For every inbound
// message it decides between the operator command path, a handover to a
// human, passthrough while a human is attending, and an AI-assisted turn.
//
// The router keeps no state of its own; everything it knows about a
// conversation is read from the session store on entry and written back
// before Handle returns. Concurrent messages for the same user are not
// serialized, so a later write wins.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/epieletronica-png/wa-ia/internal/agent"
	"github.com/epieletronica-png/wa-ia/internal/command"
	"github.com/epieletronica-png/wa-ia/internal/domain"
	"github.com/epieletronica-png/wa-ia/internal/identity"
)

// Sender delivers a text message to a user.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Completer produces the assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, turns []domain.Turn) (string, error)
}

// Polisher rewrites operator replies before delivery.
type Polisher interface {
	Polish(ctx context.Context, text string) (string, error)
}

// Store is the session state the router depends on.
type Store interface {
	Mode(ctx context.Context, user string) domain.Mode
	SetMode(ctx context.Context, user string, mode domain.Mode)
	Context(ctx context.Context, user string) []domain.Turn
	SaveContext(ctx context.Context, user string, turns []domain.Turn)
	OpenTicket(ctx context.Context, user string)
	HasTicket(ctx context.Context, user string) bool
	CloseTicket(ctx context.Context, user string)
	OpenTickets(ctx context.Context) []string
	SavePreview(ctx context.Context, user, text string)
	Preview(ctx context.Context, user string) (string, bool)
	ClearPreview(ctx context.Context, user string)
}

// Default user-facing texts.
const (
	DefaultHandoverMessage = "Certo! Vou transferir você para um de nossos atendentes. " +
		"Em instantes alguém da equipe continuará o atendimento por aqui."
	DefaultApologyMessage = "Desculpe, não consegui processar sua mensagem agora. " +
		"Por favor, tente novamente em alguns instantes."
	DefaultClosedMessage = "Seu atendimento foi encerrado. Se precisar de algo, é só chamar!"
)

// Config holds the router behaviour switches.
type Config struct {
	Operators identity.Operators
	// PreviewMode stages operator replies for confirmation with /enviar.
	PreviewMode bool
	// PolishReplies rewrites /resp bodies through the Polisher.
	PolishReplies   bool
	HandoverMessage string
	ApologyMessage  string
	ClosedMessage   string
	// SystemPrompt is prepended to every AI turn.
	SystemPrompt string
}

func (c Config) withDefaults() Config {
	if c.HandoverMessage == "" {
		c.HandoverMessage = DefaultHandoverMessage
	}
	if c.ApologyMessage == "" {
		c.ApologyMessage = DefaultApologyMessage
	}
	if c.ClosedMessage == "" {
		c.ClosedMessage = DefaultClosedMessage
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = agent.DefaultSystemPrompt
	}
	return c
}

// Router dispatches inbound messages.
type Router struct {
	store     Store
	sender    Sender
	completer Completer
	polisher  Polisher
	cfg       Config
	logger    *slog.Logger
}

// New creates a Router. polisher may be nil, which disables polishing.
func New(store Store, sender Sender, completer Completer, polisher Polisher, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:     store,
		sender:    sender,
		completer: completer,
		polisher:  polisher,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Handle processes one inbound message to completion. Failures of the store,
// the AI backend or the transport are logged and never returned.
func (r *Router) Handle(ctx context.Context, msg domain.Inbound) {
	logger := r.logger.With("from", msg.From, "message_id", msg.ID)

	switch {
	case r.cfg.Operators.IsOperator(msg.From):
		r.handleOperator(ctx, logger, msg)
	case command.WantsTechnician(msg.Text):
		r.handover(ctx, logger, msg)
	case r.store.Mode(ctx, msg.From) == domain.ModeHuman:
		logger.Debug("forwarding message to operators")
		r.notifyOperators(ctx, logger, fmt.Sprintf("💬 %s: %s", msg.From, msg.Text))
	default:
		r.aiTurn(ctx, logger, msg)
	}
}

func (r *Router) handleOperator(ctx context.Context, logger *slog.Logger, msg domain.Inbound) {
	cmd, err := command.Parse(msg.Text)
	if errors.Is(err, command.ErrMissingArgument) {
		logger.Debug("dropping incomplete operator command", "text", msg.Text)
		return
	}
	if cmd.To != "" {
		cmd.To = identity.Normalize(cmd.To)
		if cmd.To == "" {
			logger.Debug("dropping operator command with invalid recipient", "text", msg.Text)
			return
		}
	}

	logger.Info("operator command", "command", cmd.Kind, "to", cmd.To)

	switch cmd.Kind {
	case domain.CommandReply, domain.CommandReplyRaw:
		r.reply(ctx, logger, msg.From, cmd)
	case domain.CommandSend:
		r.releasePreview(ctx, logger, msg.From, cmd.To)
	case domain.CommandClose:
		r.store.CloseTicket(ctx, cmd.To)
		_ = r.deliver(ctx, logger, cmd.To, r.cfg.ClosedMessage)
		_ = r.deliver(ctx, logger, msg.From, fmt.Sprintf("✅ Atendimento de %s encerrado. A IA voltou a responder.", cmd.To))
	case domain.CommandList:
		_ = r.deliver(ctx, logger, msg.From, formatOpenTickets(r.store.OpenTickets(ctx)))
	default:
		_ = r.deliver(ctx, logger, msg.From, command.HelpText)
	}
}

func (r *Router) reply(ctx context.Context, logger *slog.Logger, operator string, cmd domain.Command) {
	text := cmd.Msg
	if cmd.Polishable() && r.cfg.PolishReplies && r.polisher != nil {
		text = r.polish(ctx, logger, text)
	}

	if r.cfg.PreviewMode {
		r.store.SavePreview(ctx, cmd.To, text)
		_ = r.deliver(ctx, logger, operator, formatPreviewNotice(cmd.To, text))
		return
	}

	if err := r.deliver(ctx, logger, cmd.To, text); err != nil {
		_ = r.deliver(ctx, logger, operator, fmt.Sprintf("❌ Não foi possível enviar a mensagem para %s.", cmd.To))
		return
	}
	_ = r.deliver(ctx, logger, operator, fmt.Sprintf("✅ Mensagem enviada para %s.", cmd.To))
}

// polish returns the rewritten text, or the original when polishing fails
// or yields nothing.
func (r *Router) polish(ctx context.Context, logger *slog.Logger, text string) string {
	out, err := r.polisher.Polish(ctx, text)
	if err != nil {
		logger.Warn("polish failed, using original text", "error", err)
		return text
	}
	if strings.TrimSpace(out) == "" {
		return text
	}
	return out
}

func (r *Router) releasePreview(ctx context.Context, logger *slog.Logger, operator, to string) {
	text, ok := r.store.Preview(ctx, to)
	if !ok {
		_ = r.deliver(ctx, logger, operator, fmt.Sprintf("Nenhuma prévia pendente para %s.", to))
		return
	}
	// The stage is kept on delivery failure so the operator can retry.
	if err := r.deliver(ctx, logger, to, text); err != nil {
		_ = r.deliver(ctx, logger, operator, fmt.Sprintf("❌ Não foi possível enviar a prévia para %s. Tente /enviar %s novamente.", to, to))
		return
	}
	r.store.ClearPreview(ctx, to)
	_ = r.deliver(ctx, logger, operator, fmt.Sprintf("✅ Prévia enviada para %s.", to))
}

func (r *Router) handover(ctx context.Context, logger *slog.Logger, msg domain.Inbound) {
	logger.Info("handover requested", "ticket_already_open", r.store.HasTicket(ctx, msg.From))

	r.store.SetMode(ctx, msg.From, domain.ModeHuman)
	r.store.OpenTicket(ctx, msg.From)

	_ = r.deliver(ctx, logger, msg.From, r.cfg.HandoverMessage)
	r.notifyOperators(ctx, logger, formatHandoverNotice(msg.From, msg.Text))
}

func (r *Router) aiTurn(ctx context.Context, logger *slog.Logger, msg domain.Inbound) {
	history := r.store.Context(ctx, msg.From)
	userTurn := domain.Turn{Role: domain.RoleUser, Content: msg.Text}

	turns := make([]domain.Turn, 0, len(history)+2)
	turns = append(turns, domain.Turn{Role: domain.RoleSystem, Content: r.cfg.SystemPrompt})
	turns = append(turns, history...)
	turns = append(turns, userTurn)

	reply, err := r.completer.Complete(ctx, turns)
	if err != nil {
		logger.Error("AI completion failed", "error", err)
		_ = r.deliver(ctx, logger, msg.From, r.cfg.ApologyMessage)
		return
	}
	if reply == "" {
		logger.Warn("AI returned an empty reply")
	}

	_ = r.deliver(ctx, logger, msg.From, reply)

	next := make([]domain.Turn, 0, len(history)+2)
	next = append(next, history...)
	next = append(next, userTurn, domain.Turn{Role: domain.RoleAssistant, Content: reply})
	r.store.SaveContext(ctx, msg.From, next)
}

// notifyOperators sends text to every configured operator concurrently. A
// failed send is logged and does not affect the others.
func (r *Router) notifyOperators(ctx context.Context, logger *slog.Logger, text string) {
	var g errgroup.Group
	for _, op := range r.cfg.Operators.Recipients() {
		g.Go(func() error {
			return r.deliver(ctx, logger, op, text)
		})
	}
	_ = g.Wait()
}

func (r *Router) deliver(ctx context.Context, logger *slog.Logger, to, text string) error {
	if err := r.sender.Send(ctx, to, text); err != nil {
		logger.Warn("failed to deliver message", "to", to, "error", err)
		return err
	}
	return nil
}

func formatPreviewNotice(to, text string) string {
	return fmt.Sprintf("📝 Prévia para %s:\n\n%s\n\n"+
		"Para enviar: /enviar %s\n"+
		"Para enviar outro texto sem revisão: /respraw %s <mensagem>", to, text, to, to)
}

func formatHandoverNotice(from, text string) string {
	return fmt.Sprintf("🔔 Novo pedido de atendimento humano de %s:\n\"%s\"\n\n"+
		"Responder: /resp %s <mensagem>\n"+
		"Encerrar: /fechar %s", from, text, from, from)
}

func formatOpenTickets(users []string) string {
	if len(users) == 0 {
		return "Nenhum ticket aberto."
	}
	var b strings.Builder
	b.WriteString("📋 Atendimentos abertos:")
	for _, u := range users {
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}
