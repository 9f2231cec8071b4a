package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/CTAG07/Babbler/pkg/markov"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and model statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

// statsReport is what the stats command prints.
type statsReport struct {
	CorpusBlocks int                    `json:"corpus_blocks"`
	CorpusBytes  int                    `json:"corpus_bytes"`
	Model        markov.ModelStats      `json:"model"`
	Training     markov.TrainingSummary `json:"training"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg := cm.Get()
	st, err := openStorage(cfg.Server, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	blocks, err := st.corpus.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list corpus: %w", err)
	}
	svc := NewModelService(st.corpus, cfg.Markov, logger)
	summary, err := svc.Rebuild(cmd.Context())
	if err != nil {
		return err
	}

	report := statsReport{
		CorpusBlocks: len(blocks),
		Model:        svc.Model().Stats(),
		Training:     summary,
	}
	for _, b := range blocks {
		report.CorpusBytes += b.Size
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Corpus (%s):\n", cfg.Server.CorpusBackend)
	fmt.Printf("  Blocks:            %d\n", report.CorpusBlocks)
	fmt.Printf("  Bytes:             %d\n", report.CorpusBytes)
	fmt.Printf("  Sentences:         %d\n", report.Training.Sentences)
	fmt.Printf("Model:\n")
	fmt.Printf("  Source tokens:     %d\n", report.Model.SourceTokens)
	fmt.Printf("  Vocabulary:        %d\n", report.Model.Vocabulary)
	fmt.Printf("  Dead ends:         %d\n", report.Model.DeadEnds)
	fmt.Printf("  Transitions:       %d\n", report.Model.TotalTransitions)
	fmt.Printf("  Total frequency:   %d\n", report.Model.TotalFrequency)
	return nil
}
