package markov

import (
	"reflect"
	"slices"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tokenizer := NewDefaultTokenizer()

	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "Two sentences",
			text:     "Hello world. How are you?",
			expected: []string{"Hello world.", "How are you?"},
		},
		{
			name:     "Mixed terminators and newlines",
			text:     "Stop!\n\nWho goes there?  A friend.",
			expected: []string{"Stop!", "Who goes there?", "A friend."},
		},
		{
			name:     "Punctuation without whitespace is not a boundary",
			text:     "Version 1.5 is out.Really",
			expected: []string{"Version 1.5 is out.Really"},
		},
		{
			name:     "Repeated punctuation stays attached",
			text:     "Wait... what?! No.",
			expected: []string{"Wait...", "what?!", "No."},
		},
		{
			name:     "Vertical tab and next line count as whitespace",
			text:     "Hi.\vThere now.\u0085Bye.",
			expected: []string{"Hi.", "There now.", "Bye."},
		},
		{
			name:     "No-break space after a mark",
			text:     "Hi.\u00a0There.",
			expected: []string{"Hi.", "There."},
		},
		{
			name:     "Trailing whitespace is dropped",
			text:     "One. \t ",
			expected: []string{"One."},
		},
		{
			name:     "Empty input",
			text:     "",
			expected: nil,
		},
		{
			name:     "Whitespace only",
			text:     "   \n ",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := slices.Collect(tokenizer.SplitSentences(tc.text))
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tc.text, got, tc.expected)
			}
		})
	}
}

func TestSplitSentencesRestartable(t *testing.T) {
	seq := NewDefaultTokenizer().SplitSentences("a b. c d. e f.")

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second range produced %q, want %q", second, first)
	}

	// Stopping early must not panic or leak state into the next range.
	for range seq {
		break
	}
	if third := slices.Collect(seq); len(third) != 3 {
		t.Errorf("expected 3 sentences after an early break, got %d", len(third))
	}
}

func TestTokenize(t *testing.T) {
	tokenizer := NewDefaultTokenizer()

	testCases := []struct {
		name     string
		sentence string
		expected []string
	}{
		{
			name:     "Punctuation and repeated spaces",
			sentence: "Hello,   world!!",
			expected: []string{"hello", "world"},
		},
		{
			name:     "Digits and underscores are word characters",
			sentence: "snake_case 42 times",
			expected: []string{"snake_case", "42", "times"},
		},
		{
			name:     "Apostrophes split words",
			sentence: "Don't panic",
			expected: []string{"don", "t", "panic"},
		},
		{
			name:     "Unicode letters",
			sentence: "\u00dcber Caf\u00e9, NA\u00cfVE!",
			expected: []string{"\u00fcber", "caf\u00e9", "na\u00efve"},
		},
		{
			name:     "Symbols only",
			sentence: "!!! ... \U0001F642 --",
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tokenizer.Tokenize(tc.sentence)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Tokenize(%q) = %q, want %q", tc.sentence, got, tc.expected)
			}
		})
	}
}

func TestTokenizerOptions(t *testing.T) {
	tokenizer := NewDefaultTokenizer(
		WithSentenceRegex(`(;)\s*`),
		WithWordRegex(`[a-z]+`),
	)

	got := slices.Collect(tokenizer.SplitSentences("one two; THREE four"))
	expected := []string{"one two;", "THREE four"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("SplitSentences with custom regex = %q, want %q", got, expected)
	}

	tokens := tokenizer.Tokenize("THREE four")
	if !reflect.DeepEqual(tokens, []string{"four"}) {
		t.Errorf("Tokenize with custom regex = %q, want [four]", tokens)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens(NewDefaultTokenizer(), "The cat sat. ... The dog ran!")
	expected := [][]string{{"the", "cat", "sat"}, {"the", "dog", "ran"}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Tokens() = %q, want %q", got, expected)
	}
}
