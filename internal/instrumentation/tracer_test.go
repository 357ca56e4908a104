package instrumentation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracerCompareDistances(t *testing.T) {
	cases := []struct {
		name          string
		op            CompareOp
		a, b          float64
		outcome       bool
		trueDistance  float64
		falseDistance float64
	}{
		{name: "eq near", op: OpEq, a: 3, b: 5, outcome: false, trueDistance: 2, falseDistance: 0},
		{name: "eq hit", op: OpEq, a: 5, b: 5, outcome: true, trueDistance: 0, falseDistance: 1},
		{name: "lt false", op: OpLt, a: 5, b: 5, outcome: false, trueDistance: 1, falseDistance: 0},
		{name: "lt true", op: OpLt, a: 2, b: 5, outcome: true, trueDistance: 0, falseDistance: 3},
		{name: "le false", op: OpLe, a: 7, b: 5, outcome: false, trueDistance: 2, falseDistance: 0},
		{name: "gt true", op: OpGt, a: 7, b: 5, outcome: true, trueDistance: 0, falseDistance: 2},
		{name: "ge false", op: OpGe, a: 4, b: 5, outcome: false, trueDistance: 1, falseDistance: 0},
		{name: "ne hit", op: OpNe, a: 4, b: 5, outcome: true, trueDistance: 0, falseDistance: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracer := NewTracer()
			got := tracer.Compare(0, tc.op, tc.a, tc.b)
			assert.Equal(t, tc.outcome, got)
			trace := tracer.Snapshot()
			assert.Equal(t, tc.trueDistance, trace.Distance(0, true))
			assert.Equal(t, tc.falseDistance, trace.Distance(0, false))
		})
	}
}

func TestTracerKeepsMinimumDistance(t *testing.T) {
	tracer := NewTracer()
	tracer.Compare(0, OpEq, 10, 0)
	tracer.Compare(0, OpEq, 2, 0)
	tracer.Compare(0, OpEq, 6, 0)

	trace := tracer.Snapshot()
	assert.Equal(t, 2.0, trace.Distance(0, true))
	assert.Equal(t, 3, trace.ExecutedPredicates[0])
}

func TestTracerStringEquality(t *testing.T) {
	tracer := NewTracer()
	assert.False(t, tracer.CompareStrings(0, OpEq, "kitten", "sitting"))
	assert.Equal(t, 3.0, tracer.Snapshot().Distance(0, true))
}

func TestTracerDisableStopsRecording(t *testing.T) {
	tracer := NewTracer()
	tracer.EnterCodeObject(1)
	tracer.Disable()
	tracer.EnterCodeObject(2)
	tracer.Line(0)
	tracer.Bool(0, true)

	trace := tracer.Snapshot()
	assert.True(t, trace.CodeObjectExecuted(1))
	assert.False(t, trace.CodeObjectExecuted(2))
	assert.False(t, trace.LineCovered(0))
	assert.False(t, trace.PredicateExecuted(0))
}

func TestExecutionTraceMergeAndEqual(t *testing.T) {
	a := NewTracer()
	a.EnterCodeObject(0)
	a.Compare(0, OpLt, 4, 1)
	b := NewTracer()
	b.EnterCodeObject(1)
	b.Compare(0, OpLt, 2, 1)
	b.Line(3)

	merged := a.Snapshot()
	merged.Merge(b.Snapshot())
	require.True(t, merged.CodeObjectExecuted(0))
	require.True(t, merged.CodeObjectExecuted(1))
	assert.Equal(t, 2.0, merged.Distance(0, true))
	assert.Equal(t, 2, merged.ExecutedPredicates[0])
	assert.True(t, merged.LineCovered(3))

	assert.True(t, merged.Equal(merged.Clone()))
	assert.False(t, merged.Equal(a.Snapshot()))
	assert.True(t, math.IsInf(NewExecutionTrace().Distance(5, true), 1))
}

func TestBranchlessCodeObjects(t *testing.T) {
	props := NewSubjectProperties()
	module := props.RegisterCodeObject("module", -1)
	fn := props.RegisterCodeObject("fn", module)
	props.RegisterCodeObject("helper", module)
	props.RegisterPredicate(fn, 3, nil)

	assert.Equal(t, []int{0, 2}, props.BranchlessCodeObjects())
}

func TestNormalise(t *testing.T) {
	assert.Equal(t, 0.0, Normalise(0))
	assert.Equal(t, 0.5, Normalise(1))
	assert.Equal(t, 1.0, Normalise(math.Inf(1)))
}
