package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWantsTechnician(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"quero falar com um humano", true},
		{"Preciso de um TÉCNICO", true},
		{"tem assistencia técnica?", true},
		{"chama um atendente por favor", true},
		{"não quero falar com humano", true},
		{"bom dia", false},
		{"qual o horário de funcionamento?", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, WantsTechnician(tt.in), tt.in)
	}
}
