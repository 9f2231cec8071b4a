package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	cfgFile string
	cm      *ConfigManager
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "babbler",
	Short: "Babbler - learn word pairs from text and babble them back",
	Long: `Babbler trains a bigram language model on a plain-text corpus and
generates new sentences from it, either from the command line or over an
HTTP API.

Example usage:
  babbler ingest ./books           # Add every .txt file below ./books to the corpus
  babbler generate -n 20 --seed 7  # Print one generated sentence
  babbler serve                    # Serve the HTTP API`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cm, err = NewConfigManager(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger = newLogger(os.Stderr, cm.Get().Server.LogLevel)
		cm.SetLogger(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config.json", "config file (.json, .yaml or .yml)")
}

// newLogger builds the process logger on w. The binary passes stderr so that
// command output on stdout stays clean.
func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
