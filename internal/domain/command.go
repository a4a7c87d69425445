package domain

// CommandKind discriminates the Command variants.
type CommandKind string

const (
	// CommandNone is any operator text that is not a recognized directive.
	CommandNone CommandKind = "none"
	// CommandReply sends Msg to To, optionally polished first.
	CommandReply CommandKind = "reply"
	// CommandReplyRaw sends Msg to To verbatim.
	CommandReplyRaw CommandKind = "reply_raw"
	// CommandSend releases the pending preview for To.
	CommandSend CommandKind = "send"
	// CommandClose closes the ticket for To and returns it to AI mode.
	CommandClose CommandKind = "close"
	// CommandList lists users with an open ticket.
	CommandList CommandKind = "list"
)

// Command is a parsed operator directive. Which fields are set depends on
// Kind: reply and reply_raw carry To and Msg, send and close carry To,
// list and none carry nothing.
type Command struct {
	Kind CommandKind `json:"type"`
	To   string      `json:"to,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// Polishable reports whether the command body may be rewritten before delivery.
func (c Command) Polishable() bool {
	return c.Kind == CommandReply
}
