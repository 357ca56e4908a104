package archive

import "gensuite/internal/chromosome"

// Solution is what the archives store: a test-case shaped chromosome that can
// be cloned and compared structurally.
type Solution[T any] interface {
	chromosome.Individual[T]
}

type coverageEntry[T any] struct {
	solution T
	fitness  float64
	covered  bool
	set      bool
}

// CoverageArchive remembers, for every goal, the best chromosome seen so far:
// lowest fitness first, then shortest, then the incumbent. Stored chromosomes
// are shared with the caller and must not be mutated afterwards.
type CoverageArchive[T Solution[T]] struct {
	goals     []chromosome.FitnessFunction
	index     map[chromosome.FitnessFunction]int
	entries   []coverageEntry[T]
	onCovered []func(goal chromosome.FitnessFunction, solution T)
}

func NewCoverageArchive[T Solution[T]](goals ...chromosome.FitnessFunction) *CoverageArchive[T] {
	a := &CoverageArchive[T]{index: make(map[chromosome.FitnessFunction]int, len(goals))}
	a.AddGoals(goals...)
	return a
}

// AddGoals registers goals not yet known to the archive. Duplicates are ignored.
func (a *CoverageArchive[T]) AddGoals(goals ...chromosome.FitnessFunction) {
	for _, g := range goals {
		if _, ok := a.index[g]; ok {
			continue
		}
		a.index[g] = len(a.goals)
		a.goals = append(a.goals, g)
		a.entries = append(a.entries, coverageEntry[T]{})
	}
}

// OnTargetCovered registers fn to run whenever a goal becomes covered.
func (a *CoverageArchive[T]) OnTargetCovered(fn func(goal chromosome.FitnessFunction, solution T)) {
	a.onCovered = append(a.onCovered, fn)
}

// Update offers solutions for every goal and reports whether any goal became
// covered.
func (a *CoverageArchive[T]) Update(solutions []T) bool {
	newlyCovered := false
	for _, s := range solutions {
		for i, g := range a.goals {
			f := s.FitnessFor(g)
			e := &a.entries[i]
			if e.set && !better(f, s.Length(), e.fitness, e.solution.Length()) {
				continue
			}
			wasCovered := e.covered
			*e = coverageEntry[T]{solution: s, fitness: f, covered: f == 0, set: true}
			if e.covered && !wasCovered {
				newlyCovered = true
				for _, fn := range a.onCovered {
					fn(g, s)
				}
			}
		}
	}
	return newlyCovered
}

func better(fitness float64, length int, bestFitness float64, bestLength int) bool {
	if fitness != bestFitness {
		return fitness < bestFitness
	}
	return length < bestLength
}

func (a *CoverageArchive[T]) Goals() []chromosome.FitnessFunction {
	return append([]chromosome.FitnessFunction(nil), a.goals...)
}

func (a *CoverageArchive[T]) CoveredGoals() []chromosome.FitnessFunction {
	var out []chromosome.FitnessFunction
	for i, g := range a.goals {
		if a.entries[i].covered {
			out = append(out, g)
		}
	}
	return out
}

func (a *CoverageArchive[T]) UncoveredGoals() []chromosome.FitnessFunction {
	var out []chromosome.FitnessFunction
	for i, g := range a.goals {
		if !a.entries[i].covered {
			out = append(out, g)
		}
	}
	return out
}

func (a *CoverageArchive[T]) NumCoveredGoals() int {
	n := 0
	for _, e := range a.entries {
		if e.covered {
			n++
		}
	}
	return n
}

// BestFitness returns the best fitness recorded for goal.
func (a *CoverageArchive[T]) BestFitness(goal chromosome.FitnessFunction) (float64, bool) {
	i, ok := a.index[goal]
	if !ok || !a.entries[i].set {
		return 0, false
	}
	return a.entries[i].fitness, true
}

// Solutions returns the covering chromosomes, deduplicated, in goal order.
func (a *CoverageArchive[T]) Solutions() []T {
	var covering []T
	for _, e := range a.entries {
		if e.covered {
			covering = append(covering, e.solution)
		}
	}
	return dedupe(covering)
}

// dedupe drops structural duplicates, keeping the first occurrence.
func dedupe[T Solution[T]](in []T) []T {
	var out []T
	seen := make(map[uint64][]T)
	for _, s := range in {
		h := s.Hash()
		duplicate := false
		for _, other := range seen[h] {
			if other.Equal(s) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen[h] = append(seen[h], s)
		out = append(out, s)
	}
	return out
}

// Reset forgets every recorded solution but keeps the goals.
func (a *CoverageArchive[T]) Reset() {
	for i := range a.entries {
		a.entries[i] = coverageEntry[T]{}
	}
}
