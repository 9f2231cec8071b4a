package markov

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// RandomSource produces uniformly distributed integers in [0, n). It panics if
// n <= 0. A *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	rng RandomSource
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithRand sets the random source used for every draw of a generation call.
// The source is not synchronized by the Generator, so a source shared between
// concurrent calls must be safe for concurrent use.
func WithRand(rng RandomSource) GenerateOption {
	return func(o *generateOptions) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithSeed makes generation reproducible: the same seed and the same model
// always produce the same output.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.rng = rand.New(rand.NewPCG(seed, seed)) }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return options
}

// Generate walks model starting from a uniformly chosen source token and
// returns at most maxLength raw tokens. The walk stops early, without error,
// when it reaches a token that was never observed as a source (a dead end).
//
// It returns ErrInvalidArgument if maxLength < 1 and ErrEmptyModel if model
// has no source tokens. Formatting the tokens for display is left to the caller.
func (g *Generator) Generate(ctx context.Context, model *FrozenModel, maxLength int, opts ...GenerateOption) ([]string, error) {
	if err := validateGenerate(model, maxLength); err != nil {
		return nil, err
	}
	options := newGenerateOptions(opts)

	w := &walker{model: model, rng: options.rng}
	tokens := make([]string, 0, min(maxLength, 64))

	for len(tokens) < maxLength {
		token, ok := w.next()
		if !ok {
			g.logger.DebugContext(ctx, "Generation terminated due to dead-end",
				slog.String("last_token", w.current),
				slog.Int("generated_length", len(tokens)),
			)
			return tokens, nil
		}
		tokens = append(tokens, token)
	}

	g.logger.DebugContext(ctx, "Generation terminated by reaching maxLength",
		slog.Int("max_length", maxLength),
		slog.Int("generated_length", len(tokens)),
	)
	return tokens, nil
}

func validateGenerate(model *FrozenModel, maxLength int) error {
	if maxLength < 1 {
		return fmt.Errorf("max length must be at least 1, got %d: %w", maxLength, ErrInvalidArgument)
	}
	if model.Len() == 0 {
		return fmt.Errorf("cannot generate: %w", ErrEmptyModel)
	}
	return nil
}

// walker holds the state of a single random walk over a FrozenModel.
type walker struct {
	model   *FrozenModel
	rng     RandomSource
	current string
	started bool
}

// next returns the next token of the walk. The first call picks the seed
// token; later calls follow a weighted transition out of the current token.
// It returns false once the current token is a dead end.
func (w *walker) next() (string, bool) {
	if !w.started {
		w.started = true
		w.current = w.model.sources[w.rng.IntN(len(w.model.sources))]
		return w.current, true
	}

	table, ok := w.model.table(w.current)
	if !ok {
		return "", false
	}
	token, ok := Pick(table.transitions, w.rng.IntN(table.total))
	if !ok {
		return "", false
	}
	w.current = token
	return token, true
}

// Pick performs weighted selection over transitions for a draw r in
// [0, total count). It walks the transitions in order, accumulating counts,
// and returns the first token whose cumulative count exceeds r. The boolean is
// false if r is outside that range.
func Pick(transitions []Transition, r int) (string, bool) {
	if r < 0 {
		return "", false
	}
	cumulative := 0
	for _, t := range transitions {
		cumulative += t.Count
		if cumulative > r {
			return t.Token, true
		}
	}
	return "", false
}
