package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gensuite/internal/instrumentation"
	"gensuite/internal/testcase"
)

type countingObserver struct {
	before, after int
	last          *Result
}

func (o *countingObserver) BeforeTestCaseExecution(*testcase.TestCase) { o.before++ }
func (o *countingObserver) AfterTestCaseExecution(_ *testcase.TestCase, r *Result) {
	o.after++
	o.last = r
}

func callable(name string, params []testcase.Type, fn testcase.InvokeFunc) *testcase.Callable {
	return &testcase.Callable{Name: name, Kind: testcase.KindFunction, Params: params, Returns: testcase.TypeInt, Invoke: fn}
}

func newExecutor(t *testing.T, timeout time.Duration) *Executor {
	t.Helper()
	e, err := NewExecutor(Config{Timeout: timeout})
	require.NoError(t, err)
	return e
}

func TestExecuteRecordsTraceAndStopsAtFirstException(t *testing.T) {
	double := callable("double", []testcase.Type{testcase.TypeInt}, func(_ context.Context, tr *instrumentation.Tracer, _ any, args []any) (any, error) {
		tr.EnterCodeObject(0)
		n := args[0].(int)
		if tr.Compare(0, instrumentation.OpGt, float64(n), 10) {
			return nil, errors.New("too big")
		}
		return n * 2, nil
	})

	tc := testcase.New()
	small := tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, 3))
	tc.Append(testcase.NewCallStatement(double, nil, []*testcase.Variable{small}))
	big := tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, 30))
	tc.Append(testcase.NewCallStatement(double, nil, []*testcase.Variable{big}))
	tc.Append(testcase.NewCallStatement(double, nil, []*testcase.Variable{small}))

	observer := &countingObserver{}
	executor := newExecutor(t, time.Second)
	executor.AddObserver(observer)
	result := executor.Execute(context.Background(), tc)

	require.False(t, result.Timeout)
	require.True(t, result.HasTestExceptions())
	pos, ok := result.FirstExceptionPosition()
	require.True(t, ok)
	assert.Equal(t, 3, pos)
	assert.Equal(t, 4, result.ExecutedStatements)
	assert.True(t, result.Trace.CodeObjectExecuted(0))
	assert.Equal(t, 2, result.Trace.ExecutedPredicates[0])
	assert.Equal(t, 1, observer.before)
	assert.Equal(t, 1, observer.after)
	assert.Same(t, result, observer.last)
}

func TestExecuteRecoversPanics(t *testing.T) {
	boom := callable("boom", nil, func(context.Context, *instrumentation.Tracer, any, []any) (any, error) {
		panic("kaboom")
	})
	tc := testcase.New()
	tc.Append(testcase.NewCallStatement(boom, nil, nil))

	result := newExecutor(t, time.Second).Execute(context.Background(), tc)
	require.True(t, result.HasTestExceptions())
	assert.Contains(t, result.Exceptions[0].Err.Error(), "kaboom")
}

func TestExecuteTimeoutYieldsEmptyTrace(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := callable("slow", nil, func(_ context.Context, tr *instrumentation.Tracer, _ any, _ []any) (any, error) {
		tr.EnterCodeObject(0)
		<-release
		tr.Line(0)
		return 0, nil
	})
	tc := testcase.New()
	tc.Append(testcase.NewCallStatement(slow, nil, nil))

	result := newExecutor(t, 20*time.Millisecond).Execute(context.Background(), tc)
	require.True(t, result.Timeout)
	assert.Empty(t, result.Trace.ExecutedCodeObjects)
	assert.Empty(t, result.Trace.CoveredLines)
}

func TestNewExecutorRequiresTimeout(t *testing.T) {
	_, err := NewExecutor(Config{})
	assert.Error(t, err)
}
