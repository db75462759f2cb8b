package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"tags stripped", "<p>hello <b>world</b></p>", "hello world"},
		{"entities decoded", "cats &amp; dogs", "cats & dogs"},
		{"whitespace collapsed", "a\n\n  b\t c", "a b c"},
		{"tags replaced by spaces", "one<br>two", "one two"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanHTML(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 900)
	assert.Len(t, Truncate(long), MaxSummaryLen)

	exact := strings.Repeat("y", MaxSummaryLen)
	assert.Equal(t, exact, Truncate(exact))

	assert.Equal(t, "short", Truncate("short"))

	// Cap is in characters, not bytes.
	wide := strings.Repeat("é", 600)
	assert.Equal(t, MaxSummaryLen, len([]rune(Truncate(wide))))
}

func TestMatchesKeywords(t *testing.T) {
	keywords := []string{"npc", "agent"}

	assert.True(t, MatchesKeywords("New NPC behavior model", keywords))
	assert.True(t, MatchesKeywords("multi-AGENT systems", keywords))
	assert.False(t, MatchesKeywords("Quarterly earnings report", keywords))
	assert.False(t, MatchesKeywords("anything", nil))
}

func TestResolveTime(t *testing.T) {
	published := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, &published, ResolveTime(&published, &updated))
	assert.Equal(t, &updated, ResolveTime(nil, &updated))
	assert.Nil(t, ResolveTime(nil, nil))
}
