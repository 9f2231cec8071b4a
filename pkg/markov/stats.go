package markov

// ModelStats holds aggregated statistics for a single frozen model.
type ModelStats struct {
	SourceTokens     int `json:"source_tokens"`     // The number of tokens with at least one outgoing transition.
	Vocabulary       int `json:"vocabulary"`        // The number of unique tokens seen as either side of a bigram.
	DeadEnds         int `json:"dead_ends"`         // The number of tokens only ever seen as a destination.
	TotalTransitions int `json:"total_transitions"` // The number of unique source->destination links.
	TotalFrequency   int `json:"total_frequency"`   // The sum of all counts; the total number of trained bigrams.
}

// Stats returns a snapshot of statistics for the model.
func (m *FrozenModel) Stats() ModelStats {
	var stats ModelStats
	if m.Len() == 0 {
		return stats
	}

	destinations := make(map[string]struct{})
	for _, source := range m.sources {
		table := m.tables[source]
		stats.TotalTransitions += len(table.transitions)
		stats.TotalFrequency += table.total
		for _, t := range table.transitions {
			destinations[t.Token] = struct{}{}
		}
	}

	stats.SourceTokens = len(m.sources)
	stats.Vocabulary = len(m.sources)
	for token := range destinations {
		if _, isSource := m.tables[token]; !isSource {
			stats.DeadEnds++
			stats.Vocabulary++
		}
	}
	return stats
}
