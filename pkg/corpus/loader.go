package corpus

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Loader finds corpus files below a root directory using doublestar glob
// patterns (`**` matches across directories) and copies them into a Store.
type Loader struct {
	includes []string
	excludes []string
	logger   *slog.Logger
}

// NewLoader creates a Loader. With no include patterns every `.txt` file is
// selected.
func NewLoader(includes, excludes []string, logger *slog.Logger) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*.txt"}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		includes: includes,
		excludes: excludes,
		logger:   logger,
	}
}

// Files returns the paths of every regular file below root that matches an
// include pattern and no exclude pattern, in lexical order. Patterns are
// matched against slash-separated paths relative to root.
func (l *Loader) Files(root string) ([]string, error) {
	var files []string

	for _, pattern := range l.includes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
	}
	for _, pattern := range l.excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && l.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if l.shouldInclude(relPath) && !l.shouldExclude(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory %s: %w", root, err)
	}
	return files, nil
}

func (l *Loader) shouldInclude(path string) bool {
	for _, pattern := range l.includes {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

func (l *Loader) shouldExclude(path string) bool {
	for _, pattern := range l.excludes {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

// Load reads every file in paths and adds it to store as one block. The
// optional progress callback is called after each file. A file that cannot be
// read aborts the load; blocks added before it stay in the store.
func (l *Loader) Load(ctx context.Context, store Store, paths []string, progress func(done, total int, path string)) ([]Block, error) {
	blocks := make([]Block, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return blocks, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return blocks, fmt.Errorf("failed to read corpus file: %w", err)
		}
		block, err := store.Add(ctx, path, string(data))
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, block)

		l.logger.DebugContext(ctx, "Corpus file loaded",
			slog.String("path", path),
			slog.Int64("block_id", block.ID),
			slog.Int("size", block.Size),
		)
		if progress != nil {
			progress(i+1, len(paths), path)
		}
	}
	return blocks, nil
}
