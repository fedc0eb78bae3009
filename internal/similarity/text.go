package similarity

import (
	"regexp"
	"strings"
)

// minTokenLen is the shortest token kept by Tokenize; shorter tokens are noise words.
const minTokenLen = 3

var (
	hashtagRegex = regexp.MustCompile(`#\w+`)
	nonWordRegex = regexp.MustCompile(`[^\w\s]`)
)

// TokenSet is a set of normalized tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from tokens; duplicates collapse.
func NewTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Contains reports whether token is in the set.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Tokenize lower-cases text, replaces non-word characters with spaces, splits on
// whitespace and drops tokens shorter than minTokenLen.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := nonWordRegex.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ExtractHashtags returns all #word tokens in text, lower-cased, in order of appearance.
func ExtractHashtags(text string) []string {
	matches := hashtagRegex.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.ToLower(m)
	}
	return matches
}

// Overlap returns |a ∩ b| / max(|a|, |b|), or 0 when either set is empty.
func Overlap(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for t := range small {
		if large.Contains(t) {
			shared++
		}
	}
	return float64(shared) / float64(len(large))
}

// TextSimilarity is the token-overlap similarity of two free-text strings.
func TextSimilarity(a, b string) float64 {
	return Overlap(NewTokenSet(Tokenize(a)), NewTokenSet(Tokenize(b)))
}

// HashtagSimilarity is the overlap of the hashtag sets of two strings.
func HashtagSimilarity(a, b string) float64 {
	return Overlap(NewTokenSet(ExtractHashtags(a)), NewTokenSet(ExtractHashtags(b)))
}

// firstWord returns the first whitespace-separated word of s, or "".
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
