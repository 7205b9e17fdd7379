package strings

import (
	"strings"
)

// DefaultSummaryMaxLen is the maximum length of endpoint summaries in table output.
const DefaultSummaryMaxLen = 60

// MinTruncateLen is the minimum maxLen value for Truncate.
// Smaller values would not leave room for one character plus "...".
const MinTruncateLen = 4

// Truncate collapses all whitespace (newlines included) to single spaces and
// cuts the result to maxLen runes, ending with "..." when something was cut.
// maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// ContainsAnyFold reports whether any of the haystack values contains any of
// the terms, ignoring case. Empty terms never match.
func ContainsAnyFold(haystack []string, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		for _, value := range haystack {
			if strings.Contains(strings.ToLower(value), term) {
				return true
			}
		}
	}
	return false
}
