package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/CTAG07/Babbler/pkg/corpus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	ingestIncludes []string
	ingestExcludes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Add text files to the corpus",
	Long: `Add text files to the stored corpus, one block per file. Directories are
walked recursively and filtered with the include/exclude glob patterns from
the config file (or the flags); plain file arguments are always added.

Examples:
  babbler ingest ./books                      # Every .txt file below ./books
  babbler ingest ./notes --include '**/*.md'  # Markdown instead
  babbler ingest story.txt                    # A single file`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns to include (default from config)")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns to exclude (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := cm.Get()
	includes, excludes := cfg.Server.CorpusIncludes, cfg.Server.CorpusExcludes
	if cmd.Flags().Changed("include") {
		includes = ingestIncludes
	}
	if cmd.Flags().Changed("exclude") {
		excludes = ingestExcludes
	}
	loader := corpus.NewLoader(includes, excludes, logger)

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := loader.Files(arg)
		if err != nil {
			return err
		}
		paths = append(paths, files...)
	}
	if len(paths) == 0 {
		fmt.Println("No matching files found.")
		return nil
	}

	st, err := openStorage(cfg.Server, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	progress := func(done, total int, _ string) {
		barMu.Lock()
		defer barMu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		_ = bar.Set(done)
	}

	blocks, err := loader.Load(cmd.Context(), st.corpus, paths, progress)
	if err != nil {
		return fmt.Errorf("ingest stopped after %d of %d files: %w", len(blocks), len(paths), err)
	}

	totalBytes := 0
	for _, b := range blocks {
		totalBytes += b.Size
	}
	fmt.Printf("Added %d blocks (%d bytes) to the %s corpus.\n", len(blocks), totalBytes, cfg.Server.CorpusBackend)
	return nil
}
