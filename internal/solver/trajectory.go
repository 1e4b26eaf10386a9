package solver

// Trajectory is the insertion-ordered set of pairs visited in one episode.
// A pair seen a second time is ignored, so it is credited once per episode.
type Trajectory struct {
	order []int
	seen  [NumPairs]bool
}

// Add records p unless it was already visited.
func (t *Trajectory) Add(p Pair) error {
	i, err := PairIndex(p)
	if err != nil {
		return err
	}
	if t.seen[i] {
		return nil
	}
	t.seen[i] = true
	t.order = append(t.order, i)
	return nil
}

// Len returns the number of distinct pairs.
func (t *Trajectory) Len() int {
	return len(t.order)
}

// Pairs returns the distinct pairs in first-visit order.
func (t *Trajectory) Pairs() []Pair {
	out := make([]Pair, len(t.order))
	for n, i := range t.order {
		out[n] = pairAt(i)
	}
	return out
}

// Reset empties the trajectory, keeping its storage.
func (t *Trajectory) Reset() {
	for _, i := range t.order {
		t.seen[i] = false
	}
	t.order = t.order[:0]
}
