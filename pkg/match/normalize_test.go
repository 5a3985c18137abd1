package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Zürich", "zurich"},
		{"Straße", "strasse"},
		{"Café", "cafe"},
		{"Genève", "geneve"},
		{"Täter", "tater"},
		{"Ørsted", "orsted"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestTokens_DropsStopWordsAndShortTokens(t *testing.T) {
	got := Tokens("The Senior Engineer for a Team in Zürich")
	assert.Equal(t, []string{"senior", "engineer", "team", "zurich"}, got)
}

func TestTokens_SplitsOnPunctuation(t *testing.T) {
	got := Tokens("backend/frontend, node.js & C++")
	assert.Equal(t, []string{"backend", "frontend", "node", "js"}, got)
}

func TestTokens_Empty(t *testing.T) {
	assert.Empty(t, Tokens(""))
	assert.Empty(t, Tokens("a I - ,"))
}
