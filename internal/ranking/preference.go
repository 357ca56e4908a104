package ranking

import "gensuite/internal/chromosome"

// Ranking is the front decomposition of one population. Membership is by
// identity and the ranking owns no chromosome.
type Ranking[T chromosome.Chromosome] struct {
	fronts [][]T
	ranks  map[uint64]int
}

func (r *Ranking[T]) NumFronts() int { return len(r.fronts) }

// Front returns the i-th front, or nil when there is none.
func (r *Ranking[T]) Front(i int) []T {
	if i < 0 || i >= len(r.fronts) {
		return nil
	}
	return r.fronts[i]
}

// Rank returns the front index of c, or -1 when c was not ranked.
func (r *Ranking[T]) Rank(c T) int {
	rank, ok := r.ranks[c.ID()]
	if !ok {
		return -1
	}
	return rank
}

// PreferenceSorting ranks solutions for many-objective search: front 0 holds
// the best solution for each uncovered goal; the rest are split into
// successive non-dominated fronts until populationSize solutions are ranked.
// Anything left over lands in one final front.
func PreferenceSorting[T chromosome.Chromosome](solutions []T, uncovered []chromosome.FitnessFunction, populationSize int) *Ranking[T] {
	r := &Ranking[T]{ranks: make(map[uint64]int, len(solutions))}
	if len(solutions) == 0 {
		return r
	}
	zero := zeroFront(solutions, uncovered)
	if len(zero) > 0 {
		r.push(zero)
	}
	ranked := len(zero)

	remaining := make([]T, 0, len(solutions))
	for _, s := range solutions {
		if _, ok := r.ranks[s.ID()]; !ok {
			remaining = append(remaining, s)
		}
	}

	comparator := NewDominanceComparator(uncovered)
	for ranked < populationSize && len(remaining) > 0 {
		front := NonDominated(remaining, comparator)
		r.push(front)
		ranked += len(front)
		remaining = remaining[:0:0]
		for _, s := range solutions {
			if _, ok := r.ranks[s.ID()]; !ok {
				remaining = append(remaining, s)
			}
		}
	}
	if len(remaining) > 0 {
		r.push(remaining)
	}
	return r
}

func (r *Ranking[T]) push(front []T) {
	rank := len(r.fronts)
	r.fronts = append(r.fronts, front)
	for _, c := range front {
		r.ranks[c.ID()] = rank
	}
}

// zeroFront picks, per goal, the solution with the lowest fitness, breaking
// ties by shorter length.
func zeroFront[T chromosome.Chromosome](solutions []T, goals []chromosome.FitnessFunction) []T {
	var front []T
	seen := make(map[uint64]struct{})
	for _, g := range goals {
		best := -1
		bestValue := 0.0
		for i, s := range solutions {
			value := s.FitnessFor(g)
			if best < 0 || value < bestValue || (value == bestValue && s.Length() < solutions[best].Length()) {
				best, bestValue = i, value
			}
		}
		if best < 0 {
			continue
		}
		if _, ok := seen[solutions[best].ID()]; ok {
			continue
		}
		seen[solutions[best].ID()] = struct{}{}
		front = append(front, solutions[best])
	}
	return front
}
