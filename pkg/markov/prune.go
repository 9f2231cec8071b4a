package markov

// Prune returns a new model without the transitions whose count is less than
// or equal to minFreq. This is useful for removing rare, and often noisy,
// transitions. Source tokens left without any transition are dropped as well,
// so every source in the result still has at least one destination. The
// receiver is not modified and relative order is preserved.
func (m *FrozenModel) Prune(minFreq int) *FrozenModel {
	pruned := &FrozenModel{tables: make(map[string]*transitionTable)}
	if m == nil {
		return pruned
	}

	for _, source := range m.sources {
		kept := newTransitionTable()
		for _, t := range m.tables[source].transitions {
			if t.Count <= minFreq {
				continue
			}
			kept.index[t.Token] = len(kept.transitions)
			kept.transitions = append(kept.transitions, t)
			kept.total += t.Count
		}
		if len(kept.transitions) == 0 {
			continue
		}
		pruned.sources = append(pruned.sources, source)
		pruned.tables[source] = kept
	}
	return pruned
}
