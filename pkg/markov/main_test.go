package markov

import (
	"context"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// trainTestModel trains a fresh Trainer on blocks and returns the frozen result.
func trainTestModel(t testing.TB, blocks ...string) *FrozenModel {
	t.Helper()
	trainer := NewTrainer(NewDefaultTokenizer())
	trainer.TrainStrings(context.Background(), blocks...)
	return trainer.Freeze()
}

// observeTestModel builds a model directly from token sequences, bypassing the tokenizer.
func observeTestModel(sequences ...[]string) *FrozenModel {
	m := NewTrainingModel()
	for _, seq := range sequences {
		m.Observe(seq)
	}
	return m.Freeze()
}

// scriptedRand replays a fixed list of draws, failing the test if a draw is
// out of range for the requested n or the script runs out.
type scriptedRand struct {
	t     *testing.T
	draws []int
}

func (r *scriptedRand) IntN(n int) int {
	r.t.Helper()
	if len(r.draws) == 0 {
		r.t.Fatalf("scriptedRand: ran out of draws (IntN(%d))", n)
	}
	v := r.draws[0]
	r.draws = r.draws[1:]
	if v < 0 || v >= n {
		r.t.Fatalf("scriptedRand: draw %d out of range for IntN(%d)", v, n)
	}
	return v
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
