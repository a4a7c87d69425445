package domain

// Mode is the per-user conversation mode.
type Mode string

const (
	// ModeAI routes end-user messages to the AI backend.
	ModeAI Mode = "AI"
	// ModeHuman forwards end-user messages to the operators.
	ModeHuman Mode = "HUMAN"
)

// ParseMode maps a stored value to a Mode. Unknown or empty values
// resolve to ModeAI.
func ParseMode(v string) Mode {
	if Mode(v) == ModeHuman {
		return ModeHuman
	}
	return ModeAI
}

// Inbound is a text message delivered by the webhook transport.
// Authenticity has already been checked by the time it reaches the router.
type Inbound struct {
	ID        string
	From      string
	Text      string
	Timestamp int64
}
