package archive

import (
	"math/rand"
	"sort"

	"gensuite/internal/chromosome"
	"gensuite/internal/instrumentation"
)

type mioEntry[T Solution[T]] struct {
	solution  T
	heuristic float64
}

type mioPopulation[T Solution[T]] struct {
	capacity int
	covered  bool
	members  []mioEntry[T]
}

// MIOArchive keeps a small ranked population per goal. The heuristic of a
// member is h = 1 - Normalise(fitness), so h == 1 means covered. Once a goal
// is covered its population collapses to a single covering solution that is
// only replaced by a shorter covering one.
type MIOArchive[T Solution[T]] struct {
	goals       []chromosome.FitnessFunction
	populations []*mioPopulation[T]
	capacity    int
}

func NewMIOArchive[T Solution[T]](goals []chromosome.FitnessFunction, capacity int) *MIOArchive[T] {
	if capacity < 1 {
		capacity = 1
	}
	a := &MIOArchive[T]{goals: append([]chromosome.FitnessFunction(nil), goals...), capacity: capacity}
	a.populations = make([]*mioPopulation[T], len(goals))
	for i := range a.populations {
		a.populations[i] = &mioPopulation[T]{capacity: capacity}
	}
	return a
}

func (a *MIOArchive[T]) Goals() []chromosome.FitnessFunction {
	return append([]chromosome.FitnessFunction(nil), a.goals...)
}

// Capacity is the current per-goal population bound n.
func (a *MIOArchive[T]) Capacity() int { return a.capacity }

// Update offers solution to every goal population and reports whether any of
// them accepted it.
func (a *MIOArchive[T]) Update(solution T) bool {
	accepted := false
	for i, g := range a.goals {
		h := 1 - instrumentation.Normalise(solution.FitnessFor(g))
		if a.populations[i].offer(solution, h) {
			accepted = true
		}
	}
	return accepted
}

func (p *mioPopulation[T]) offer(solution T, h float64) bool {
	if h <= 0 {
		return false
	}
	entry := mioEntry[T]{solution: solution, heuristic: h}
	if p.covered {
		if h < 1 || solution.Length() >= p.members[0].solution.Length() {
			return false
		}
		p.members[0] = entry
		return true
	}
	if h >= 1 {
		p.covered = true
		p.members = []mioEntry[T]{entry}
		return true
	}
	if len(p.members) < p.capacity {
		p.members = append(p.members, entry)
		p.sort()
		return true
	}
	worst := p.members[len(p.members)-1]
	if h < worst.heuristic || (h == worst.heuristic && solution.Length() > worst.solution.Length()) {
		return false
	}
	p.members[len(p.members)-1] = entry
	p.sort()
	return true
}

// sort orders members best first: higher heuristic, then shorter, then older.
func (p *mioPopulation[T]) sort() {
	sort.SliceStable(p.members, func(i, j int) bool {
		a, b := p.members[i], p.members[j]
		if a.heuristic != b.heuristic {
			return a.heuristic > b.heuristic
		}
		if a.solution.Length() != b.solution.Length() {
			return a.solution.Length() < b.solution.Length()
		}
		return a.solution.ID() < b.solution.ID()
	})
}

// Solution returns a clone of a random member of a random non-empty,
// uncovered population. ok is false when no such population exists.
func (a *MIOArchive[T]) Solution(rng *rand.Rand) (solution T, ok bool) {
	var candidates []*mioPopulation[T]
	for _, p := range a.populations {
		if !p.covered && len(p.members) > 0 {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return solution, false
	}
	p := candidates[rng.Intn(len(candidates))]
	return p.members[rng.Intn(len(p.members))].solution.Clone(), true
}

// ShrinkSolutions lowers the per-goal bound to n and drops the worst members
// of every population that exceeds it.
func (a *MIOArchive[T]) ShrinkSolutions(n int) {
	if n < 1 {
		n = 1
	}
	a.capacity = n
	for _, p := range a.populations {
		p.capacity = n
		if len(p.members) > n {
			p.members = p.members[:n]
		}
	}
}

// PopulationSize is the number of members currently held for goal i.
func (a *MIOArchive[T]) PopulationSize(i int) int { return len(a.populations[i].members) }

func (a *MIOArchive[T]) NumCoveredGoals() int {
	n := 0
	for _, p := range a.populations {
		if p.covered {
			n++
		}
	}
	return n
}

func (a *MIOArchive[T]) Empty() bool {
	for _, p := range a.populations {
		if len(p.members) > 0 {
			return false
		}
	}
	return true
}

// Solutions returns the covering solutions, deduplicated, in goal order.
func (a *MIOArchive[T]) Solutions() []T {
	var covering []T
	for _, p := range a.populations {
		if p.covered {
			covering = append(covering, p.members[0].solution)
		}
	}
	return dedupe(covering)
}
