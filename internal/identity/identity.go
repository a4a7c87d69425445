// Package identity resolves which senders are privileged operators.
package identity

import (
	"net"
	"net/http"
	"strings"
)

// Operators holds the configured operator phone numbers. Either may be empty.
type Operators struct {
	Owner      string
	Technician string
}

// NewOperators normalises the configured numbers.
func NewOperators(owner, technician string) Operators {
	return Operators{
		Owner:      Normalize(owner),
		Technician: Normalize(technician),
	}
}

// Normalize strips everything but digits, so "+55 (11) 99999-0000" and
// "5511999990000" compare equal.
func Normalize(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsOperator reports whether sender matches a configured operator.
func (o Operators) IsOperator(sender string) bool {
	s := Normalize(sender)
	if s == "" {
		return false
	}
	return s == o.Owner || s == o.Technician
}

// Recipients returns the distinct non-empty operator numbers, owner first.
func (o Operators) Recipients() []string {
	var out []string
	for _, n := range []string{o.Owner, o.Technician} {
		if n == "" {
			continue
		}
		if len(out) > 0 && out[0] == n {
			continue
		}
		out = append(out, n)
	}
	return out
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
