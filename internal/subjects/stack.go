package subjects

import (
	"context"
	"errors"

	"gensuite/internal/instrumentation"
	"gensuite/internal/testcase"
)

const typeStack testcase.Type = "Stack"

var (
	errStackFull  = errors.New("stack is full")
	errStackEmpty = errors.New("stack is empty")
)

type boundedStack struct {
	items    []int
	capacity int
}

// Stack is a bounded integer stack with a validating constructor.
func Stack() *Subject {
	props := instrumentation.NewSubjectProperties()
	ctor := props.RegisterCodeObject("NewStack", -1)
	push := props.RegisterCodeObject("Stack.Push", -1)
	pop := props.RegisterCodeObject("Stack.Pop", -1)
	size := props.RegisterCodeObject("Stack.Size", -1)
	small := props.RegisterPredicate(ctor, 2, nil)
	full := props.RegisterPredicate(push, 9, nil)
	empty := props.RegisterPredicate(pop, 16, nil)
	clamped := props.RegisterLine(ctor, 3)
	pushed := props.RegisterLine(push, 12)
	popped := props.RegisterLine(pop, 20)

	cluster := testcase.NewCluster()
	cluster.AddUnderTest(&testcase.Callable{
		Name:    "NewStack",
		Kind:    testcase.KindConstructor,
		Owner:   typeStack,
		Params:  []testcase.Type{testcase.TypeInt},
		Returns: typeStack,
		Invoke: func(_ context.Context, tr *instrumentation.Tracer, _ any, args []any) (any, error) {
			tr.EnterCodeObject(ctor)
			capacity := args[0].(int)
			if tr.Compare(small, instrumentation.OpLt, float64(capacity), 1) {
				tr.Line(clamped)
				capacity = 1
			}
			return &boundedStack{capacity: capacity}, nil
		},
	})
	cluster.AddUnderTest(&testcase.Callable{
		Name:    "Push",
		Kind:    testcase.KindMethod,
		Owner:   typeStack,
		Params:  []testcase.Type{testcase.TypeInt},
		Returns: testcase.TypeNone,
		Invoke: func(_ context.Context, tr *instrumentation.Tracer, recv any, args []any) (any, error) {
			tr.EnterCodeObject(push)
			s := recv.(*boundedStack)
			if tr.Compare(full, instrumentation.OpGe, float64(len(s.items)), float64(s.capacity)) {
				return nil, errStackFull
			}
			tr.Line(pushed)
			s.items = append(s.items, args[0].(int))
			return nil, nil
		},
	})
	cluster.AddUnderTest(&testcase.Callable{
		Name:    "Pop",
		Kind:    testcase.KindMethod,
		Owner:   typeStack,
		Returns: testcase.TypeInt,
		Invoke: func(_ context.Context, tr *instrumentation.Tracer, recv any, _ []any) (any, error) {
			tr.EnterCodeObject(pop)
			s := recv.(*boundedStack)
			if tr.Compare(empty, instrumentation.OpEq, float64(len(s.items)), 0) {
				return nil, errStackEmpty
			}
			tr.Line(popped)
			top := s.items[len(s.items)-1]
			s.items = s.items[:len(s.items)-1]
			return top, nil
		},
	})
	cluster.AddUnderTest(&testcase.Callable{
		Name:    "Size",
		Kind:    testcase.KindMethod,
		Owner:   typeStack,
		Returns: testcase.TypeInt,
		Invoke: func(_ context.Context, tr *instrumentation.Tracer, recv any, _ []any) (any, error) {
			tr.EnterCodeObject(size)
			return len(recv.(*boundedStack).items), nil
		},
	})
	return &Subject{
		Name:        "stack",
		Description: "bounded integer stack with Push, Pop and Size",
		Properties:  props,
		Cluster:     cluster,
	}
}
