// Package normalize holds the pure text and timestamp normalization applied
// to every candidate article before it reaches the store.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"time"
)

// MaxSummaryLen is the hard cap, in characters, applied to stored summaries.
const MaxSummaryLen = 500

var tagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips markup tags, decodes entities and collapses whitespace
// runs to single spaces.
func CleanHTML(raw string) string {
	text := tagRe.ReplaceAllString(raw, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// Truncate caps s at MaxSummaryLen characters. Applied after CleanHTML,
// before persistence.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxSummaryLen {
		return s
	}
	return string(runes[:MaxSummaryLen])
}

// MatchesKeywords reports whether text contains at least one of the keywords
// as a case-insensitive substring. Callers treat an empty keyword list as
// "no filtering" and must not call this with one.
func MatchesKeywords(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ResolveTime returns the best-effort publication timestamp: the published
// time when present, the updated time as a fallback, nil otherwise. A date
// is never fabricated.
func ResolveTime(published, updated *time.Time) *time.Time {
	if published != nil {
		return published
	}
	if updated != nil {
		return updated
	}
	return nil
}
