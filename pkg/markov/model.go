package markov

import (
	"fmt"
	"slices"
)

// Transition is a single outgoing edge of a source token: the token that was
// observed directly after it, and how many times that happened.
type Transition struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// transitionTable holds the outgoing transitions of one source token in the
// order they were first observed.
type transitionTable struct {
	index       map[string]int // destination token -> position in transitions
	transitions []Transition
	total       int
}

func newTransitionTable() *transitionTable {
	return &transitionTable{index: make(map[string]int)}
}

func (t *transitionTable) increment(token string) {
	if i, ok := t.index[token]; ok {
		t.transitions[i].Count++
	} else {
		t.index[token] = len(t.transitions)
		t.transitions = append(t.transitions, Transition{Token: token, Count: 1})
	}
	t.total++
}

// TrainingModel accumulates bigram counts. It is append-only: counts only ever
// increase and tokens are never removed. A TrainingModel is not safe for
// concurrent use; it is meant to be owned by a single Trainer.
type TrainingModel struct {
	sources []string
	tables  map[string]*transitionTable
}

// NewTrainingModel returns an empty TrainingModel.
func NewTrainingModel() *TrainingModel {
	return &TrainingModel{tables: make(map[string]*transitionTable)}
}

// Observe records every adjacent pair in tokens as a transition. Sequences
// shorter than two tokens contribute nothing.
func (m *TrainingModel) Observe(tokens []string) {
	for i := 0; i+1 < len(tokens); i++ {
		source := tokens[i]
		table, ok := m.tables[source]
		if !ok {
			table = newTransitionTable()
			m.tables[source] = table
			m.sources = append(m.sources, source)
		}
		table.increment(tokens[i+1])
	}
}

// Len returns the number of distinct source tokens observed so far.
func (m *TrainingModel) Len() int {
	return len(m.sources)
}

// Freeze hands everything observed so far to a new FrozenModel and resets m to
// an empty model. The returned FrozenModel is never touched by m again, so it
// can be shared freely between goroutines.
func (m *TrainingModel) Freeze() *FrozenModel {
	frozen := &FrozenModel{
		sources: m.sources,
		tables:  m.tables,
	}
	m.sources = nil
	m.tables = make(map[string]*transitionTable)
	return frozen
}

// FrozenModel is an immutable snapshot of a trained model. All of its methods
// are read-only and safe for concurrent use.
type FrozenModel struct {
	sources []string
	tables  map[string]*transitionTable
}

// Transitions returns the outgoing transitions of source in the order they
// were first observed. The boolean is false if source was never seen as the
// first token of a bigram.
func (m *FrozenModel) Transitions(source string) ([]Transition, bool) {
	table, ok := m.table(source)
	if !ok {
		return nil, false
	}
	return slices.Clone(table.transitions), true
}

// SourceTokens returns every token that has appeared as the first token of a
// bigram, in the order they were first observed. It returns ErrEmptyModel if
// the model holds no transitions at all.
func (m *FrozenModel) SourceTokens() ([]string, error) {
	if m.Len() == 0 {
		return nil, fmt.Errorf("no source tokens: %w", ErrEmptyModel)
	}
	return slices.Clone(m.sources), nil
}

// Len returns the number of distinct source tokens. A nil model has length 0.
func (m *FrozenModel) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sources)
}

func (m *FrozenModel) table(source string) (*transitionTable, bool) {
	if m == nil {
		return nil, false
	}
	table, ok := m.tables[source]
	return table, ok
}
