package wakedetector

import (
	"strings"
	"unicode"
)

// normalize lowercases text, collapses runs of internal whitespace to a
// single space, and strips leading/trailing punctuation except "," and
// "?" per spec.md §4.1 step 1.
func normalize(text string) string {
	lower := strings.ToLower(text)

	var collapsed strings.Builder
	lastWasSpace := false
	for _, r := range lower {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				collapsed.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		collapsed.WriteRune(r)
		lastWasSpace = false
	}

	return strings.TrimFunc(strings.TrimSpace(collapsed.String()), func(r rune) bool {
		if r == ',' || r == '?' {
			return false
		}
		return unicode.IsPunct(r)
	})
}

// strongPunctuationBoundary finds the index of the first "strong" sentence
// boundary (. ! ? or newline) in s, or -1 if none.
func strongPunctuationBoundary(s string) int {
	return strings.IndexFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}
