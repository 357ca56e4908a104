package subjects

import (
	"context"
	"strings"

	"gensuite/internal/instrumentation"
	"gensuite/internal/testcase"
)

// Matcher recognises a keyword with an optional prefix.
func Matcher() *Subject {
	props := instrumentation.NewSubjectProperties()
	fn := props.RegisterCodeObject("match", -1)
	exact := props.RegisterPredicate(fn, 2, nil)
	long := props.RegisterPredicate(fn, 5, &instrumentation.ControlDependency{Predicate: exact, Value: false})
	prefixed := props.RegisterPredicate(fn, 6, &instrumentation.ControlDependency{Predicate: long, Value: true})
	matched := props.RegisterLine(fn, 3)
	prefix := props.RegisterLine(fn, 7)

	match := &testcase.Callable{
		Name:    "match",
		Kind:    testcase.KindFunction,
		Params:  []testcase.Type{testcase.TypeString},
		Returns: testcase.TypeInt,
		Invoke: func(_ context.Context, tr *instrumentation.Tracer, _ any, args []any) (any, error) {
			s := args[0].(string)
			tr.EnterCodeObject(fn)
			if tr.CompareStrings(exact, instrumentation.OpEq, s, "go") {
				tr.Line(matched)
				return 2, nil
			}
			if tr.Compare(long, instrumentation.OpGt, float64(len(s)), 3) {
				if tr.Bool(prefixed, strings.HasPrefix(s, "g")) {
					tr.Line(prefix)
					return 1, nil
				}
			}
			return 0, nil
		},
	}

	cluster := testcase.NewCluster()
	cluster.AddUnderTest(match)
	return &Subject{
		Name:        "matcher",
		Description: "match(s string) int recognising a keyword or a prefix",
		Properties:  props,
		Cluster:     cluster,
	}
}
