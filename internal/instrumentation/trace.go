package instrumentation

import (
	"maps"
	"math"
)

// ExecutionTrace records what one execution of a test case touched.
type ExecutionTrace struct {
	ExecutedCodeObjects map[int]struct{}
	ExecutedPredicates  map[int]int
	TrueDistances       map[int]float64
	FalseDistances      map[int]float64
	CoveredLines        map[int]struct{}
}

func NewExecutionTrace() *ExecutionTrace {
	return &ExecutionTrace{
		ExecutedCodeObjects: make(map[int]struct{}),
		ExecutedPredicates:  make(map[int]int),
		TrueDistances:       make(map[int]float64),
		FalseDistances:      make(map[int]float64),
		CoveredLines:        make(map[int]struct{}),
	}
}

// Merge folds other into t: counts add up and distances keep their minimum.
func (t *ExecutionTrace) Merge(other *ExecutionTrace) {
	if other == nil {
		return
	}
	for id := range other.ExecutedCodeObjects {
		t.ExecutedCodeObjects[id] = struct{}{}
	}
	for id, count := range other.ExecutedPredicates {
		t.ExecutedPredicates[id] += count
	}
	mergeMin(t.TrueDistances, other.TrueDistances)
	mergeMin(t.FalseDistances, other.FalseDistances)
	for id := range other.CoveredLines {
		t.CoveredLines[id] = struct{}{}
	}
}

func (t *ExecutionTrace) Clone() *ExecutionTrace {
	out := NewExecutionTrace()
	out.Merge(t)
	return out
}

func (t *ExecutionTrace) Equal(other *ExecutionTrace) bool {
	if t == nil || other == nil {
		return t == other
	}
	return maps.Equal(t.ExecutedCodeObjects, other.ExecutedCodeObjects) &&
		maps.Equal(t.ExecutedPredicates, other.ExecutedPredicates) &&
		maps.Equal(t.TrueDistances, other.TrueDistances) &&
		maps.Equal(t.FalseDistances, other.FalseDistances) &&
		maps.Equal(t.CoveredLines, other.CoveredLines)
}

func (t *ExecutionTrace) CodeObjectExecuted(id int) bool {
	_, ok := t.ExecutedCodeObjects[id]
	return ok
}

func (t *ExecutionTrace) PredicateExecuted(id int) bool {
	return t.ExecutedPredicates[id] > 0
}

func (t *ExecutionTrace) LineCovered(id int) bool {
	_, ok := t.CoveredLines[id]
	return ok
}

// Distance returns the recorded branch distance for the given outcome of a
// predicate, or +Inf when the predicate never executed.
func (t *ExecutionTrace) Distance(predicate int, value bool) float64 {
	source := t.FalseDistances
	if value {
		source = t.TrueDistances
	}
	d, ok := source[predicate]
	if !ok {
		return math.Inf(1)
	}
	return d
}

func (t *ExecutionTrace) updatePredicate(predicate int, trueDistance, falseDistance float64) {
	t.ExecutedPredicates[predicate]++
	if old, ok := t.TrueDistances[predicate]; !ok || trueDistance < old {
		t.TrueDistances[predicate] = trueDistance
	}
	if old, ok := t.FalseDistances[predicate]; !ok || falseDistance < old {
		t.FalseDistances[predicate] = falseDistance
	}
}

func mergeMin(dst, src map[int]float64) {
	for id, d := range src {
		if old, ok := dst[id]; !ok || d < old {
			dst[id] = d
		}
	}
}

// Normalise maps a non-negative distance into [0, 1).
func Normalise(x float64) float64 {
	if math.IsInf(x, 1) {
		return 1
	}
	if x < 0 {
		return 0
	}
	return x / (x + 1)
}
