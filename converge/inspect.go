package converge

import "jackautoplug"

// PairState is the live state of one desired pair.
type PairState struct {
	Pair              jackautoplug.Pair
	SourceExists      bool
	DestinationExists bool
	Connected         bool
	Err               error
}

// Inspect queries the graph for every desired pair without changing it.
// Connection state is only queried when both ports exist.
func (e *Engine) Inspect(g Graph) []PairState {
	states := make([]PairState, 0, len(e.pairs))
	for _, pair := range e.pairs {
		st := PairState{
			Pair:              pair,
			SourceExists:      g.PortExists(pair.From),
			DestinationExists: g.PortExists(pair.To),
		}
		if st.SourceExists && st.DestinationExists {
			st.Connected, st.Err = g.IsConnected(pair.From, pair.To)
		}
		states = append(states, st)
	}
	return states
}
