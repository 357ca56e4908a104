package ranking

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"gensuite/internal/chromosome"
)

// Distances maps chromosome ids to their tie-break score within one front.
type Distances map[uint64]float64

func (d Distances) Of(c chromosome.Chromosome) float64 { return d[c.ID()] }

// CrowdingDistance assigns each member of front the sum, over goals, of the
// range-normalised fitness gap between its neighbours. Boundary members get
// +Inf.
func CrowdingDistance[T chromosome.Chromosome](front []T, goals []chromosome.FitnessFunction) Distances {
	d := make(Distances, len(front))
	if len(front) <= 2 {
		for _, c := range front {
			d[c.ID()] = math.Inf(1)
		}
		return d
	}
	for _, c := range front {
		d[c.ID()] = 0
	}
	order := make([]int, len(front))
	values := make([]float64, len(front))
	for _, g := range goals {
		for i, c := range front {
			order[i] = i
			values[i] = c.FitnessFor(g)
		}
		sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

		first, last := front[order[0]], front[order[len(order)-1]]
		d[first.ID()] = math.Inf(1)
		d[last.ID()] = math.Inf(1)
		span := floats.Max(values) - floats.Min(values)
		if span == 0 {
			continue
		}
		for i := 1; i < len(order)-1; i++ {
			gap := values[order[i+1]] - values[order[i-1]]
			d[front[order[i]].ID()] += gap / span
		}
	}
	return d
}

// EpsilonDominance is the cheaper alternative tie-break: for every goal the
// members sharing the minimum fitness gain (|front|-|minSet|)/|front|.
func EpsilonDominance[T chromosome.Chromosome](front []T, goals []chromosome.FitnessFunction) Distances {
	d := make(Distances, len(front))
	for _, c := range front {
		d[c.ID()] = 0
	}
	if len(front) == 0 {
		return d
	}
	for _, g := range goals {
		minValue := math.Inf(1)
		var minSet []T
		for _, c := range front {
			v := c.FitnessFor(g)
			switch {
			case v < minValue:
				minValue = v
				minSet = append(minSet[:0], c)
			case v == minValue:
				minSet = append(minSet, c)
			}
		}
		if len(minSet) == len(front) {
			continue
		}
		share := float64(len(front)-len(minSet)) / float64(len(front))
		for _, c := range minSet {
			d[c.ID()] += share
		}
	}
	return d
}

// SortByDistance orders front by descending distance, stable on ties.
func SortByDistance[T chromosome.Chromosome](front []T, d Distances) {
	sort.SliceStable(front, func(i, j int) bool { return d[front[i].ID()] > d[front[j].ID()] })
}
