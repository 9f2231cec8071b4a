package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CTAG07/Babbler/pkg/corpus"
	"github.com/CTAG07/Babbler/pkg/markov"
)

// ModelService owns the model that is currently being served. Readers load it
// through an atomic pointer; rebuilds train a fresh model from the corpus
// store and swap it in, so a reader never sees a partially trained model.
type ModelService struct {
	store        corpus.Store
	tokenizer    markov.Tokenizer
	generator    *markov.Generator
	pruneMinFreq int
	model        atomic.Pointer[markov.FrozenModel]
	rebuildMu    sync.Mutex
	logger       *slog.Logger
}

// NewModelService creates a service with no model loaded. Call Rebuild to
// train one from the store.
func NewModelService(store corpus.Store, cfg *MarkovConfig, logger *slog.Logger) *ModelService {
	var opts []markov.Option
	if cfg.SentenceRegex != "" {
		opts = append(opts, markov.WithSentenceRegex(cfg.SentenceRegex))
	}
	if cfg.WordRegex != "" {
		opts = append(opts, markov.WithWordRegex(cfg.WordRegex))
	}

	gen := markov.NewGenerator()
	gen.SetLogger(logger)

	return &ModelService{
		store:        store,
		tokenizer:    markov.NewDefaultTokenizer(opts...),
		generator:    gen,
		pruneMinFreq: cfg.PruneMinFreq,
		logger:       logger,
	}
}

// Model returns the model currently being served. It may be nil before the
// first Rebuild, which every markov read path treats as an empty model.
func (s *ModelService) Model() *markov.FrozenModel {
	return s.model.Load()
}

// Prune swaps in a copy of the served model without the transitions seen
// minFreq times or fewer, and returns it. It holds the rebuild lock so a
// concurrent Rebuild is never overwritten by a prune of an older model.
func (s *ModelService) Prune(minFreq int) *markov.FrozenModel {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	pruned := s.model.Load().Prune(minFreq)
	s.model.Store(pruned)
	return pruned
}

// Generator returns the generator used for all requests.
func (s *ModelService) Generator() *markov.Generator {
	return s.generator
}

// Rebuild trains a new model from every block in the store and swaps it in.
// Concurrent rebuilds are serialized; the served model stays available while
// a rebuild runs.
func (s *ModelService) Rebuild(ctx context.Context) (markov.TrainingSummary, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	texts, err := corpus.Collect(ctx, s.store)
	if err != nil {
		return markov.TrainingSummary{}, fmt.Errorf("failed to read corpus: %w", err)
	}

	trainer := markov.NewTrainer(s.tokenizer)
	trainer.SetLogger(s.logger)
	summary := trainer.TrainStrings(ctx, texts...)

	model := trainer.Freeze()
	if s.pruneMinFreq > 0 {
		model = model.Prune(s.pruneMinFreq)
	}
	s.model.Store(model)

	s.logger.InfoContext(ctx, "Model rebuilt",
		slog.Int("source_tokens", model.Len()),
		slog.Int("prune_min_freq", s.pruneMinFreq),
		slog.Duration("duration", time.Since(start)),
	)
	return summary, nil
}
