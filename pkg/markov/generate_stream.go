package markov

import (
	"context"
	"log/slog"
)

// GenerateStream performs the same walk as Generate but returns a read-only
// channel of tokens. This allows for processing the generated text
// token-by-token, which is useful for real-time applications. The channel is
// closed once generation is complete, a dead end is reached, or the context
// is cancelled.
//
// Argument errors are reported synchronously, before any goroutine is started.
func (g *Generator) GenerateStream(ctx context.Context, model *FrozenModel, maxLength int, opts ...GenerateOption) (<-chan string, error) {
	if err := validateGenerate(model, maxLength); err != nil {
		return nil, err
	}
	options := newGenerateOptions(opts)

	tokenChan := make(chan string)

	go func() {
		defer close(tokenChan)

		w := &walker{model: model, rng: options.rng}
		for generated := 0; generated < maxLength; generated++ {
			token, ok := w.next()
			if !ok {
				g.logger.DebugContext(ctx, "Generation stream terminated due to dead-end",
					slog.String("last_token", w.current),
					slog.Int("generated_length", generated),
				)
				return
			}
			select {
			case <-ctx.Done():
				g.logger.DebugContext(ctx, "Generation stream cancelled by context")
				return
			case tokenChan <- token:
			}
		}
	}()

	return tokenChan, nil
}
