// Package domain contains core domain types for the support router.
package domain

// Role identifies who authored a conversation turn.
type Role string

const (
	// RoleSystem denotes the instruction that frames the assistant persona.
	RoleSystem Role = "system"
	// RoleUser denotes a message written by the end user.
	RoleUser Role = "user"
	// RoleAssistant denotes a reply generated by the AI backend.
	RoleAssistant Role = "assistant"
)

// Turn is one message exchanged in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MaxContextTurns is the sliding window applied to stored conversation context.
const MaxContextTurns = 10

// TrimTurns returns the most recent limit turns, preserving order.
func TrimTurns(turns []Turn, limit int) []Turn {
	if limit <= 0 {
		return nil
	}
	if len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
