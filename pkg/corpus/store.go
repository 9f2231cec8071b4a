// Package corpus stores and loads the raw text blocks a model is trained on.
//
// Only the corpus is ever persisted, never a trained model: a process that
// needs a model trains one from the stored blocks at startup.
package corpus

import (
	"context"
	"errors"
	"time"
)

// ErrBlockNotFound is returned when a block ID does not exist in a Store.
var ErrBlockNotFound = errors.New("corpus: block not found")

// Block is a single unit of raw training text, such as one file or one
// uploaded document.
type Block struct {
	ID      int64     `json:"id"`
	Source  string    `json:"source"` // Where the text came from, e.g. a file path.
	Text    string    `json:"text,omitempty"`
	Size    int       `json:"size"`
	AddedAt time.Time `json:"added_at"`
}

// Store persists corpus blocks. Implementations return blocks in insertion
// order, so training from a Store is deterministic.
type Store interface {
	// Add stores a new block and returns it with its assigned ID.
	Add(ctx context.Context, source, text string) (Block, error)
	// Get returns a single block, or ErrBlockNotFound.
	Get(ctx context.Context, id int64) (Block, error)
	// Delete removes a block, or returns ErrBlockNotFound.
	Delete(ctx context.Context, id int64) error
	// List returns every block without its text, in insertion order.
	List(ctx context.Context) ([]Block, error)
	// Texts calls fn with the text of every block, in insertion order.
	Texts(ctx context.Context, fn func(text string) error) error
	// Close releases the resources held by the store.
	Close() error
}

// Collect reads every block text from s into memory, in insertion order.
func Collect(ctx context.Context, s Store) ([]string, error) {
	var texts []string
	err := s.Texts(ctx, func(text string) error {
		texts = append(texts, text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return texts, nil
}
