package markov

import (
	"iter"
)

// Tokenizer is an interface that defines the contract for turning raw text into
// the token sequences a model is trained on. This allows the training logic to
// be independent of the specific tokenization strategy.
type Tokenizer interface {
	// SplitSentences returns the sentences of text in their original order.
	// The returned sequence is lazy and may be ranged over more than once.
	// Empty and all-whitespace sentences are never yielded.
	SplitSentences(text string) iter.Seq[string]
	// Tokenize splits a single sentence into normalized word tokens. A
	// sentence without any word characters yields an empty slice.
	Tokenize(sentence string) []string
}

// Tokens is a convenience function that runs the full tokenizer pipeline over
// text, returning one token slice per sentence. Sentences that produce no
// tokens are skipped.
func Tokens(t Tokenizer, text string) [][]string {
	var out [][]string
	for sentence := range t.SplitSentences(text) {
		if tokens := t.Tokenize(sentence); len(tokens) > 0 {
			out = append(out, tokens)
		}
	}
	return out
}
