package markov

import (
	"errors"
	"io"
	"log/slog"
)

var (
	// ErrEmptyModel is returned when generation is attempted on a model that
	// has not observed a single bigram.
	ErrEmptyModel = errors.New("markov: model is empty")
	// ErrInvalidArgument is returned when a generation parameter is out of range.
	ErrInvalidArgument = errors.New("markov: invalid argument")
)

// DefaultMaxLength is the generation length cap used by callers that do not
// configure one.
const DefaultMaxLength = 100

// Generator is the main entry point for sampling token sequences from a
// FrozenModel. A Generator holds no per-call state, so a single instance can
// serve any number of concurrent Generate calls.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates and returns a new Generator that discards its logs.
func NewGenerator() *Generator {
	return &Generator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
// Providing a `log/slog.Logger` will enable debug logging of how each
// generation terminated.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}
