package testcase

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gensuite/internal/instrumentation"
)

const typeCounter Type = "Counter"

type counter struct{ n int }

func counterCluster() (*Cluster, *Callable, *Callable, *Callable) {
	cluster := NewCluster()
	ctor := &Callable{
		Name: "Counter", Kind: KindConstructor, Owner: typeCounter, Params: []Type{TypeInt}, Returns: typeCounter,
		Invoke: func(_ context.Context, _ *instrumentation.Tracer, _ any, args []any) (any, error) {
			return &counter{n: args[0].(int)}, nil
		},
	}
	add := &Callable{
		Name: "add", Kind: KindMethod, Owner: typeCounter, Params: []Type{TypeInt}, Returns: TypeInt,
		Invoke: func(_ context.Context, _ *instrumentation.Tracer, recv any, args []any) (any, error) {
			c := recv.(*counter)
			c.n += args[0].(int)
			return c.n, nil
		},
	}
	reset := &Callable{
		Name: "reset", Kind: KindMethod, Owner: typeCounter, Returns: TypeNone,
		Invoke: func(_ context.Context, _ *instrumentation.Tracer, recv any, _ []any) (any, error) {
			recv.(*counter).n = 0
			return nil, nil
		},
	}
	cluster.AddUnderTest(ctor)
	cluster.AddUnderTest(add)
	cluster.AddUnderTest(reset)
	return cluster, ctor, add, reset
}

func newTestFactory(t *testing.T) (*Factory, *Callable, *Callable, *Callable) {
	t.Helper()
	cluster, ctor, add, reset := counterCluster()
	factory, err := NewFactory(cluster, DefaultFactoryConfig())
	require.NoError(t, err)
	return factory, ctor, add, reset
}

func sampleCase(ctor, add *Callable) *TestCase {
	tc := New()
	seed := tc.Append(NewPrimitiveStatement(TypeInt, 3))
	obj := tc.Append(NewCallStatement(ctor, nil, []*Variable{seed}))
	delta := tc.Append(NewPrimitiveStatement(TypeInt, 4))
	tc.Append(NewCallStatement(add, obj, []*Variable{delta}))
	return tc
}

func TestCloneIsStructurallyEqualAndIndependent(t *testing.T) {
	_, ctor, add, _ := newTestFactory(t)
	tc := sampleCase(ctor, add)
	clone := tc.Clone()

	require.True(t, tc.Equal(clone))
	assert.Equal(t, tc.Hash(), clone.Hash())
	assert.NotSame(t, tc.Statement(1).ReturnValue(), clone.Statement(1).ReturnValue())

	call := clone.Statement(3).(*CallStatement)
	assert.Same(t, clone.Statement(1).ReturnValue(), call.Receiver)
	assert.Same(t, clone.Statement(2).ReturnValue(), call.Args[0])

	clone.Statement(0).(*PrimitiveStatement).Value = 99
	assert.False(t, tc.Equal(clone))
	assert.Equal(t, 3, tc.Statement(0).(*PrimitiveStatement).Value)
}

func TestEqualComparesReferencesByPosition(t *testing.T) {
	_, ctor, add, _ := newTestFactory(t)
	a := sampleCase(ctor, add)

	b := New()
	seed := b.Append(NewPrimitiveStatement(TypeInt, 3))
	obj := b.Append(NewCallStatement(ctor, nil, []*Variable{seed}))
	b.Append(NewPrimitiveStatement(TypeInt, 4))
	b.Append(NewCallStatement(add, obj, []*Variable{seed}))

	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestChopKeepsPrefix(t *testing.T) {
	_, ctor, add, _ := newTestFactory(t)
	tc := sampleCase(ctor, add)
	tc.Chop(1)
	assert.Equal(t, 2, tc.Size())
	tc.Chop(-1)
	assert.Equal(t, 0, tc.Size())
}

func TestDeleteStatementGracefullyRewiresOrRemovesDependents(t *testing.T) {
	factory, ctor, add, _ := newTestFactory(t)
	tc := sampleCase(ctor, add)
	rng := rand.New(rand.NewSource(1))

	// Deleting the second int rewires add() to the first int.
	require.True(t, factory.DeleteStatementGracefully(rng, tc, 2))
	require.Equal(t, 3, tc.Size())
	call := tc.Statement(2).(*CallStatement)
	assert.Same(t, tc.Statement(0).ReturnValue(), call.Args[0])

	// Deleting the only Counter removes the method call as well.
	require.True(t, factory.DeleteStatementGracefully(rng, tc, 1))
	assert.Equal(t, 1, tc.Size())
}

func TestChangeRandomCallKeepsReturnValue(t *testing.T) {
	cluster, ctor, add, _ := counterCluster()
	other := &Callable{
		Name: "CounterFrom", Kind: KindFunction, Params: []Type{TypeInt}, Returns: typeCounter,
		Invoke: func(_ context.Context, _ *instrumentation.Tracer, _ any, args []any) (any, error) {
			return &counter{n: args[0].(int) * 2}, nil
		},
	}
	cluster.AddDependency(other)
	factory, err := NewFactory(cluster, DefaultFactoryConfig())
	require.NoError(t, err)

	tc := sampleCase(ctor, add)
	before := tc.Statement(1).ReturnValue()
	require.True(t, factory.ChangeRandomCall(rand.New(rand.NewSource(2)), tc, tc.Statement(1)))

	changed := tc.Statement(1).(*CallStatement)
	assert.Same(t, other, changed.Callable)
	assert.Same(t, before, changed.ReturnValue())
	assert.Same(t, before, tc.Statement(3).(*CallStatement).Receiver)
}

func TestInsertRandomStatementAddsSUTCall(t *testing.T) {
	factory, _, _, _ := newTestFactory(t)
	rng := rand.New(rand.NewSource(7))
	tc := New()
	for i := 0; i < 10; i++ {
		before := tc.Size()
		pos := factory.InsertRandomStatement(rng, tc, tc.Size()-1)
		require.GreaterOrEqual(t, pos, 0)
		require.Greater(t, tc.Size(), before)
		_, isCall := tc.Statement(pos).(*CallStatement)
		assert.True(t, isCall, "position %d should hold the inserted call", pos)
	}
	assert.True(t, factory.HasCallOnSUT(tc))
}

func TestInsertRandomStatementFailsWithoutAccessibleObjects(t *testing.T) {
	factory, err := NewFactory(NewCluster(), DefaultFactoryConfig())
	require.NoError(t, err)
	tc := New()
	assert.Equal(t, -1, factory.InsertRandomStatement(rand.New(rand.NewSource(1)), tc, -1))
	assert.Equal(t, 0, tc.Size())
}

func TestAppendStatementRebindsArguments(t *testing.T) {
	factory, ctor, add, _ := newTestFactory(t)
	source := sampleCase(ctor, add)

	target := New()
	target.Append(NewPrimitiveStatement(TypeInt, 1))
	rng := rand.New(rand.NewSource(3))
	require.NoError(t, factory.AppendStatement(rng, target, source.Statement(0)))
	require.NoError(t, factory.AppendStatement(rng, target, source.Statement(1)))

	last := target.Statement(target.Size() - 1).(*CallStatement)
	assert.Same(t, ctor, last.Callable)
	for _, arg := range last.Args {
		assert.GreaterOrEqual(t, target.PositionOf(arg), 0, "argument must be defined in the target")
	}
}

func TestAppendStatementSurfacesConstructionFailure(t *testing.T) {
	cluster := NewCluster()
	orphan := &Callable{Name: "use", Kind: KindFunction, Params: []Type{"Missing"}, Returns: TypeNone}
	cluster.AddUnderTest(orphan)
	factory, err := NewFactory(cluster, DefaultFactoryConfig())
	require.NoError(t, err)

	source := New()
	source.Append(NewCallStatement(orphan, nil, []*Variable{{Type: "Missing"}}))
	target := New()
	err = factory.AppendStatement(rand.New(rand.NewSource(1)), target, source.Statement(0))
	assert.True(t, errors.Is(err, ErrConstructionFailed))
	assert.Equal(t, 0, target.Size())
}

func TestRandomLengthFactoryRespectsMaxLength(t *testing.T) {
	factory, _, _, _ := newTestFactory(t)
	cases, err := NewRandomLengthFactory(factory, 5, 100)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		tc := cases.TestCase(rng)
		assert.LessOrEqual(t, tc.Size(), 5)
		assert.Greater(t, tc.Size(), 0)
	}
}

func TestMutateStatementChangesPrimitive(t *testing.T) {
	factory, ctor, add, _ := newTestFactory(t)
	tc := sampleCase(ctor, add)
	rng := rand.New(rand.NewSource(5))
	changed := false
	for i := 0; i < 20 && !changed; i++ {
		changed = factory.MutateStatement(rng, tc, 0)
	}
	assert.True(t, changed)
}

func TestLinesRenderPositionalNames(t *testing.T) {
	_, ctor, add, _ := newTestFactory(t)
	tc := sampleCase(ctor, add)
	assert.Equal(t, []string{
		"v0 = 3",
		"v1 = Counter(v0)",
		"v2 = 4",
		"v3 = v1.add(v2)",
	}, tc.Lines())
}
