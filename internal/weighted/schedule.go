// Package weighted builds and walks the weighted round-robin index
// schedule used by route sentences: a vector of target indices, each
// target index appearing as many times as its normalized weight,
// selected in a stateful, mutex-guarded round.
package weighted

import "sync"

// divide normalizes w in place following spec.md §4.5's authoritative
// pseudocode: find the smallest pairwise GCD across adjacent weights (or 1
// as soon as any adjacent pair is coprime) and, if it divides every weight
// evenly, reduce the whole vector by it.
func divide(w []int) {
	if len(w) < 2 {
		return
	}

	d := 0
	for i := 0; i < len(w)-1; i++ {
		g := gcd(w[i], w[i+1])
		if g <= 1 {
			d = 1
			break
		}
		if d == 0 || g < d {
			d = g
		}
	}

	if d <= 1 {
		return
	}

	for _, v := range w {
		if v%d != 0 {
			return
		}
	}
	for i := range w {
		w[i] /= d
	}
}

// gcd is Euclid's algorithm on non-negative ints.
func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// buildIndex expands normalized weights into the index schedule: index i
// appears w[i] times, in input order. A zero weight contributes no entries.
func buildIndex(w []int) []int {
	total := 0
	for _, v := range w {
		if v > 0 {
			total += v
		}
	}
	idx := make([]int, 0, total)
	for i, v := range w {
		for n := 0; n < v; n++ {
			idx = append(idx, i)
		}
	}
	return idx
}

// Schedule is a stateful weighted round-robin cursor over a fixed set of
// targets. The zero value is not usable; construct with NewSchedule.
type Schedule struct {
	mu      sync.Mutex
	targets []string
	index   []int
	cursor  int
}

// NewSchedule normalizes weights (per divide, above) and builds the index
// schedule over targets. Pad/truncate weights to len(targets) before
// calling this per spec.md §4.7's target/weight parsing rule — NewSchedule
// itself assumes len(weights) == len(targets).
func NewSchedule(targets []string, weights []int) *Schedule {
	w := make([]int, len(weights))
	copy(w, weights)
	divide(w)

	return &Schedule{
		targets: append([]string(nil), targets...),
		index:   buildIndex(w),
	}
}

// Len returns the schedule length (sum of normalized weights).
func (s *Schedule) Len() int {
	return len(s.index)
}

// Next returns the next target in the schedule and advances the cursor.
// Returns ("", false) when the schedule is empty (all weights were zero),
// i.e. the selector is inert per spec.md §4.5.
func (s *Schedule) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.index) == 0 {
		return "", false
	}

	t := s.targets[s.index[s.cursor]]
	s.cursor = (s.cursor + 1) % len(s.index)
	return t, true
}
