package markov

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatSentence joins tokens with single spaces, upper-cases the first letter
// and ends the result with a period. It returns an empty string for no tokens.
func FormatSentence(tokens []string) string {
	joined := strings.Join(tokens, " ")
	if joined == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(joined)
	return string(unicode.ToUpper(first)) + joined[size:] + "."
}
