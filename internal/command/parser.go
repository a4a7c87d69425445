// Package command classifies inbound text: operator directives and
// end-user handover requests.
package command

import (
	"errors"
	"strings"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

// Operator directives.
const (
	DirectiveReply    = "/resp"
	DirectiveReplyRaw = "/respraw"
	DirectiveSend     = "/enviar"
	DirectiveClose    = "/fechar"
	DirectiveList     = "/abertos"
)

// ErrMissingArgument is returned for a recognized directive that lacks its
// recipient or body.
var ErrMissingArgument = errors.New("command: missing argument")

// HelpText is the usage reply for unrecognized operator input.
const HelpText = "Comandos disponíveis:\n" +
	"/resp <numero> <mensagem> - responder (texto pode ser revisado pela IA)\n" +
	"/respraw <numero> <mensagem> - responder sem revisão\n" +
	"/enviar <numero> - enviar a prévia pendente\n" +
	"/fechar <numero> - encerrar o atendimento e voltar para a IA\n" +
	"/abertos - listar atendimentos abertos"

// Parse turns operator text into a Command.
//
// The directive is matched on the first whitespace-separated token, so
// "/respraw" is never read as "/resp". The second token is the recipient and
// the remaining tokens, joined by single spaces, form the body. "/abertos"
// takes no arguments and must be the whole (trimmed) text. Unrecognized text
// yields CommandNone with a nil error.
func Parse(text string) (domain.Command, error) {
	text = strings.TrimSpace(text)
	if text == DirectiveList {
		return domain.Command{Kind: domain.CommandList}, nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return domain.Command{Kind: domain.CommandNone}, nil
	}

	var kind domain.CommandKind
	switch fields[0] {
	case DirectiveReplyRaw:
		kind = domain.CommandReplyRaw
	case DirectiveReply:
		kind = domain.CommandReply
	case DirectiveSend:
		kind = domain.CommandSend
	case DirectiveClose:
		kind = domain.CommandClose
	default:
		return domain.Command{Kind: domain.CommandNone}, nil
	}

	var to, msg string
	if len(fields) > 1 {
		to = fields[1]
	}
	if len(fields) > 2 {
		msg = strings.Join(fields[2:], " ")
	}
	return newCommand(kind, to, msg)
}

// newCommand validates the fields each variant requires.
func newCommand(kind domain.CommandKind, to, msg string) (domain.Command, error) {
	cmd := domain.Command{Kind: kind, To: to}
	switch kind {
	case domain.CommandReply, domain.CommandReplyRaw:
		if to == "" || msg == "" {
			return domain.Command{Kind: kind}, ErrMissingArgument
		}
		cmd.Msg = msg
	case domain.CommandSend, domain.CommandClose:
		if to == "" {
			return domain.Command{Kind: kind}, ErrMissingArgument
		}
	}
	return cmd, nil
}
