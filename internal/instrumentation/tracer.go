package instrumentation

import (
	"math"
	"strings"
	"sync"
)

type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// branchConstant is added to strict-inequality distances so a false
// comparison always has a positive distance.
const branchConstant = 1.0

// Tracer collects an ExecutionTrace while a test case runs. An execution that
// outlives its timeout keeps a reference to its tracer, so every method is
// safe for concurrent use and becomes a no-op once disabled.
type Tracer struct {
	mu       sync.Mutex
	trace    *ExecutionTrace
	disabled bool
}

func NewTracer() *Tracer {
	return &Tracer{trace: NewExecutionTrace()}
}

func (t *Tracer) EnterCodeObject(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled {
		return
	}
	t.trace.ExecutedCodeObjects[id] = struct{}{}
}

func (t *Tracer) Line(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled {
		return
	}
	t.trace.CoveredLines[id] = struct{}{}
}

// Bool records a predicate over a plain boolean and returns its value.
func (t *Tracer) Bool(predicate int, value bool) bool {
	trueDistance, falseDistance := 1.0, 0.0
	if value {
		trueDistance, falseDistance = 0, 1
	}
	t.record(predicate, trueDistance, falseDistance)
	return value
}

// Compare records the numeric comparison a op b and returns its outcome.
func (t *Tracer) Compare(predicate int, op CompareOp, a, b float64) bool {
	trueDistance, falseDistance, outcome := numericDistances(op, a, b)
	t.record(predicate, trueDistance, falseDistance)
	return outcome
}

// CompareStrings records a string comparison. Equality distances use the
// Levenshtein distance between the operands.
func (t *Tracer) CompareStrings(predicate int, op CompareOp, a, b string) bool {
	trueDistance, falseDistance, outcome := stringDistances(op, a, b)
	t.record(predicate, trueDistance, falseDistance)
	return outcome
}

// Disable stops all further recording.
func (t *Tracer) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disabled = true
}

// Snapshot returns a copy of everything recorded so far.
func (t *Tracer) Snapshot() *ExecutionTrace {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trace.Clone()
}

func (t *Tracer) record(predicate int, trueDistance, falseDistance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled {
		return
	}
	t.trace.updatePredicate(predicate, trueDistance, falseDistance)
}

func numericDistances(op CompareOp, a, b float64) (float64, float64, bool) {
	switch op {
	case OpEq:
		return math.Abs(a - b), boolDistance(a == b), a == b
	case OpNe:
		return boolDistance(a == b), math.Abs(a - b), a != b
	case OpLt:
		if a < b {
			return 0, b - a, true
		}
		return a - b + branchConstant, 0, false
	case OpLe:
		if a <= b {
			return 0, b - a + branchConstant, true
		}
		return a - b, 0, false
	case OpGt:
		if a > b {
			return 0, a - b, true
		}
		return b - a + branchConstant, 0, false
	case OpGe:
		if a >= b {
			return 0, a - b + branchConstant, true
		}
		return b - a, 0, false
	default:
		return 1, 1, false
	}
}

func stringDistances(op CompareOp, a, b string) (float64, float64, bool) {
	switch op {
	case OpEq:
		return float64(levenshtein(a, b)), boolDistance(a == b), a == b
	case OpNe:
		return boolDistance(a == b), float64(levenshtein(a, b)), a != b
	}
	cmp := strings.Compare(a, b)
	var outcome bool
	switch op {
	case OpLt:
		outcome = cmp < 0
	case OpLe:
		outcome = cmp <= 0
	case OpGt:
		outcome = cmp > 0
	case OpGe:
		outcome = cmp >= 0
	}
	if outcome {
		return 0, branchConstant, true
	}
	return branchConstant, 0, false
}

func boolDistance(equal bool) float64 {
	if equal {
		return 1
	}
	return 0
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
