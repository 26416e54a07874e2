package policy

// LoadCounter tracks how many tasks each node received.
// It is sized once and counts only grow.
type LoadCounter struct {
	counts []int
}

// NewLoadCounter creates a counter with one zeroed entry per node
func NewLoadCounter(nodes int) *LoadCounter {
	if nodes < 0 {
		nodes = 0
	}
	return &LoadCounter{counts: make([]int, nodes)}
}

// Len returns the number of tracked nodes
func (lc *LoadCounter) Len() int {
	return len(lc.counts)
}

// Increment adds one assignment to node i. Untracked indexes are ignored.
func (lc *LoadCounter) Increment(i int) bool {
	if i < 0 || i >= len(lc.counts) {
		return false
	}
	lc.counts[i]++
	return true
}

// Count returns the assignment count of node i, 0 for untracked nodes
func (lc *LoadCounter) Count(i int) int {
	if i < 0 || i >= len(lc.counts) {
		return 0
	}
	return lc.counts[i]
}

// Counts returns a copy of all counts
func (lc *LoadCounter) Counts() []int {
	out := make([]int, len(lc.counts))
	copy(out, lc.counts)
	return out
}

// Total returns the number of recorded assignments
func (lc *LoadCounter) Total() int {
	total := 0
	for _, c := range lc.counts {
		total += c
	}
	return total
}
