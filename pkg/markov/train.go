package markov

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"slices"
)

// TrainingSummary reports how much input a single Train call consumed.
type TrainingSummary struct {
	Blocks    int `json:"blocks"`
	Sentences int `json:"sentences"` // sentences that produced at least one token
	Bigrams   int `json:"bigrams"`
}

// Trainer owns a TrainingModel and feeds it tokenized corpus text. It is not
// safe for concurrent use; training is a sequential fold over the corpus.
type Trainer struct {
	tokenizer Tokenizer
	model     *TrainingModel
	logger    *slog.Logger
}

// NewTrainer creates a Trainer with an empty model. A nil tokenizer selects
// NewDefaultTokenizer().
func NewTrainer(tokenizer Tokenizer) *Trainer {
	if tokenizer == nil {
		tokenizer = NewDefaultTokenizer()
	}
	return &Trainer{
		tokenizer: tokenizer,
		model:     NewTrainingModel(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Trainer. By default, all logs are discarded.
func (t *Trainer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Train splits every block into sentences, tokenizes each sentence and records
// its bigrams. Blocks and sentences are processed in order, and no bigram ever
// spans two sentences or two blocks.
//
// Training is additive: calling Train twice with the same blocks doubles the
// counts involved. Nothing is deduplicated.
func (t *Trainer) Train(ctx context.Context, blocks iter.Seq[string]) TrainingSummary {
	var summary TrainingSummary

	for block := range blocks {
		summary.Blocks++
		for sentence := range t.tokenizer.SplitSentences(block) {
			tokens := t.tokenizer.Tokenize(sentence)
			if len(tokens) == 0 {
				continue
			}
			t.model.Observe(tokens)
			summary.Sentences++
			summary.Bigrams += len(tokens) - 1
		}
	}

	t.logger.InfoContext(ctx, "Training completed",
		slog.Int("blocks_processed", summary.Blocks),
		slog.Int("sentences_processed", summary.Sentences),
		slog.Int("bigrams_observed", summary.Bigrams),
		slog.Int("source_tokens", t.model.Len()),
	)

	return summary
}

// TrainStrings is a convenience wrapper around Train for in-memory blocks.
func (t *Trainer) TrainStrings(ctx context.Context, blocks ...string) TrainingSummary {
	return t.Train(ctx, slices.Values(blocks))
}

// Freeze ends the current training session. The model accumulated so far is
// returned as an immutable FrozenModel and the Trainer starts over with an
// empty model, so later Train calls never affect the returned snapshot.
func (t *Trainer) Freeze() *FrozenModel {
	return t.model.Freeze()
}
