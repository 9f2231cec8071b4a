package markov

import (
	"iter"
	"regexp"
	"strings"
)

// DefaultTokenizer is the default implementation of the Tokenizer interface.
// It uses regular expressions to find sentence boundaries and word runs.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	sentenceRegex *regexp.Regexp
	wordRegex     *regexp.Regexp
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSentenceRegex sets the regex string used to find sentence boundaries.
// A match marks a boundary; the end of the first capturing group is where the
// preceding sentence ends, and the end of the whole match is where the next
// one starts. Without a capturing group the sentence ends where the match starts.
// Default: `([.!?])[\s\v\x{85}\p{Z}]+`
func WithSentenceRegex(sentenceRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.sentenceRegex = regexp.MustCompile(sentenceRegex)
	}
}

// WithWordRegex sets the regex string used to find word tokens inside a sentence.
// Default: `[\p{L}\p{M}\p{Nd}\p{Pc}]+`
func WithWordRegex(wordRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.wordRegex = regexp.MustCompile(wordRegex)
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		// A sentence-ending mark immediately followed by whitespace. The mark
		// stays with the sentence, the whitespace is dropped.
		sentenceRegex: regexp.MustCompile(`([.!?])[\s\v\x{85}\p{Z}]+`),
		// Letters, combining marks, digits and connector punctuation (underscore).
		wordRegex: regexp.MustCompile(`[\p{L}\p{M}\p{Nd}\p{Pc}]+`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SplitSentences Returns a lazy sequence over the sentences in text. Nothing is
// scanned until the sequence is ranged over, and each range starts from the
// beginning of text again.
func (t *DefaultTokenizer) SplitSentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for len(rest) > 0 {
			loc := t.sentenceRegex.FindStringSubmatchIndex(rest)
			if loc == nil || loc[1] == 0 {
				break
			}
			end := loc[0]
			if len(loc) >= 4 && loc[3] >= 0 {
				end = loc[3]
			}
			sentence := rest[:end]
			rest = rest[loc[1]:]
			if strings.TrimSpace(sentence) == "" {
				continue
			}
			if !yield(sentence) {
				return
			}
		}
		if strings.TrimSpace(rest) != "" {
			yield(rest)
		}
	}
}

// Tokenize Returns the lower-cased word runs of sentence.
func (t *DefaultTokenizer) Tokenize(sentence string) []string {
	words := t.wordRegex.FindAllString(sentence, -1)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		tokens = append(tokens, strings.ToLower(word))
	}
	return tokens
}
