package ranking

import "gensuite/internal/chromosome"

// DominanceComparator orders chromosomes by Pareto dominance over a goal set.
type DominanceComparator struct {
	goals []chromosome.FitnessFunction
}

func NewDominanceComparator(goals []chromosome.FitnessFunction) DominanceComparator {
	return DominanceComparator{goals: goals}
}

// Compare returns -1 when a dominates b, +1 when b dominates a and 0 when
// neither does.
func (d DominanceComparator) Compare(a, b chromosome.Chromosome) int {
	aBetter, bBetter := false, false
	for _, g := range d.goals {
		fa, fb := a.FitnessFor(g), b.FitnessFor(g)
		if fa < fb {
			aBetter = true
		}
		if fb < fa {
			bBetter = true
		}
		if aBetter && bBetter {
			return 0
		}
	}
	switch {
	case aBetter:
		return -1
	case bBetter:
		return 1
	default:
		return 0
	}
}

// NonDominated returns the first Pareto front of solutions, preserving the
// order in which survivors were admitted.
func NonDominated[T chromosome.Chromosome](solutions []T, comparator DominanceComparator) []T {
	var front []T
	for _, p := range solutions {
		dominated := false
		kept := front[:0:0]
		for _, best := range front {
			switch comparator.Compare(p, best) {
			case -1:
				continue
			case 1:
				dominated = true
			}
			kept = append(kept, best)
		}
		if dominated {
			continue
		}
		front = append(kept, p)
	}
	return front
}
