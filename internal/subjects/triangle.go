package subjects

import (
	"context"

	"gensuite/internal/instrumentation"
	"gensuite/internal/testcase"
)

// Triangle classifies three side lengths.
func Triangle() *Subject {
	props := instrumentation.NewSubjectProperties()
	fn := props.RegisterCodeObject("classify", -1)
	nonPositive := props.RegisterPredicate(fn, 2, nil)
	inequality := props.RegisterPredicate(fn, 5, &instrumentation.ControlDependency{Predicate: nonPositive, Value: false})
	ab := props.RegisterPredicate(fn, 8, &instrumentation.ControlDependency{Predicate: inequality, Value: false})
	bc := props.RegisterPredicate(fn, 9, &instrumentation.ControlDependency{Predicate: ab, Value: true})
	other := props.RegisterPredicate(fn, 14, &instrumentation.ControlDependency{Predicate: ab, Value: false})
	invalid := props.RegisterLine(fn, 3)
	degenerate := props.RegisterLine(fn, 6)
	equilateral := props.RegisterLine(fn, 10)
	isosceles := props.RegisterLine(fn, 12)
	isoscelesOther := props.RegisterLine(fn, 15)
	scalene := props.RegisterLine(fn, 17)

	classify := &testcase.Callable{
		Name:    "classify",
		Kind:    testcase.KindFunction,
		Params:  []testcase.Type{testcase.TypeInt, testcase.TypeInt, testcase.TypeInt},
		Returns: testcase.TypeString,
		Invoke: func(_ context.Context, tr *instrumentation.Tracer, _ any, args []any) (any, error) {
			a, b, c := float64(args[0].(int)), float64(args[1].(int)), float64(args[2].(int))
			tr.EnterCodeObject(fn)
			if tr.Compare(nonPositive, instrumentation.OpLe, min(a, b, c), 0) {
				tr.Line(invalid)
				return "invalid", nil
			}
			if tr.Compare(inequality, instrumentation.OpLe, a+b, c) {
				tr.Line(degenerate)
				return "degenerate", nil
			}
			if tr.Compare(ab, instrumentation.OpEq, a, b) {
				if tr.Compare(bc, instrumentation.OpEq, b, c) {
					tr.Line(equilateral)
					return "equilateral", nil
				}
				tr.Line(isosceles)
				return "isosceles", nil
			}
			if tr.Compare(other, instrumentation.OpEq, b, c) {
				tr.Line(isoscelesOther)
				return "isosceles", nil
			}
			tr.Line(scalene)
			return "scalene", nil
		},
	}

	cluster := testcase.NewCluster()
	cluster.AddUnderTest(classify)
	return &Subject{
		Name:        "triangle",
		Description: "classify(a, b, c int) string over triangle side lengths",
		Properties:  props,
		Cluster:     cluster,
	}
}
