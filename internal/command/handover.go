package command

import "strings"

// handoverKeywords trigger a transfer to a human. Accented and unaccented
// spellings are both listed because users type either.
var handoverKeywords = []string{
	"técnico",
	"tecnico",
	"assistência",
	"assistencia",
	"atendente",
	"humano",
}

// WantsTechnician reports whether text asks for a human. It is a plain
// case-insensitive substring match; any keyword hit counts.
func WantsTechnician(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range handoverKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
