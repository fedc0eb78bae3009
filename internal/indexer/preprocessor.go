package indexer

import (
	"strings"
	"unicode"
)

// Preprocess trims text and collapses runs of whitespace (including newlines from
// multi-line spreadsheet cells) into single spaces.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pending := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
