package utils

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken approximates Gemini tokenization of English prose.
const charsPerToken = 4

// CountTokens estimates the tokens in text. Non-empty text is at least one token.
func CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/charsPerToken, 1)
}

// TruncateToTokenLimit cuts text to about limit tokens. When a sentence ends
// in the latter half of the kept text, the cut lands just after it.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	keep := limit * charsPerToken
	if utf8.RuneCountInString(text) <= keep {
		return text
	}
	cut := string([]rune(text)[:keep])
	if i := strings.LastIndexAny(cut, ".!?"); i > len(cut)/2 {
		return cut[:i+1]
	}
	return cut
}
