package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gensuite/internal/instrumentation"
	"gensuite/internal/testcase"
)

type Exception struct {
	Position int
	Err      error
}

// Result is the outcome of executing one test case.
type Result struct {
	Trace              *instrumentation.ExecutionTrace
	Timeout            bool
	Exceptions         []Exception
	ExecutedStatements int
}

func (r *Result) HasTestExceptions() bool {
	return len(r.Exceptions) > 0
}

// FirstExceptionPosition returns the position of the earliest statement that
// raised, if any.
func (r *Result) FirstExceptionPosition() (int, bool) {
	if len(r.Exceptions) == 0 {
		return 0, false
	}
	first := r.Exceptions[0].Position
	for _, e := range r.Exceptions[1:] {
		first = min(first, e.Position)
	}
	return first, true
}

type Observer interface {
	BeforeTestCaseExecution(tc *testcase.TestCase)
	AfterTestCaseExecution(tc *testcase.TestCase, result *Result)
}

type Config struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Executor runs test cases against a fresh tracer under a per-test timeout.
type Executor struct {
	timeout   time.Duration
	logger    *slog.Logger
	observers []Observer
}

func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("execution timeout must be > 0, got %s", cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{timeout: cfg.Timeout, logger: logger}, nil
}

func (e *Executor) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Execute runs a clone of tc. It never fails: panics become exceptions and a
// run that exceeds the timeout yields an empty trace with Timeout set.
func (e *Executor) Execute(ctx context.Context, tc *testcase.TestCase) *Result {
	for _, o := range e.observers {
		o.BeforeTestCaseExecution(tc)
	}
	result := e.execute(ctx, tc.Clone())
	for _, o := range e.observers {
		o.AfterTestCaseExecution(tc, result)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, tc *testcase.TestCase) *Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tracer := instrumentation.NewTracer()
	done := make(chan *Result, 1)
	go func() {
		done <- run(ctx, tc, tracer)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		tracer.Disable()
		e.logger.Debug("test case execution timed out", "timeout", e.timeout, "statements", tc.Size())
		return &Result{Trace: instrumentation.NewExecutionTrace(), Timeout: true}
	}
}

var errAborted = errors.New("execution aborted")

func run(ctx context.Context, tc *testcase.TestCase, tracer *instrumentation.Tracer) *Result {
	result := &Result{}
	values := make(map[*testcase.Variable]any, tc.Size())
	for i, stmt := range tc.Statements() {
		if ctx.Err() != nil {
			result.Exceptions = append(result.Exceptions, Exception{Position: i, Err: errAborted})
			break
		}
		value, err := executeStatement(ctx, stmt, tracer, values)
		result.ExecutedStatements++
		if err != nil {
			result.Exceptions = append(result.Exceptions, Exception{Position: i, Err: err})
			break
		}
		values[stmt.ReturnValue()] = value
	}
	result.Trace = tracer.Snapshot()
	return result
}

func executeStatement(ctx context.Context, stmt testcase.Statement, tracer *instrumentation.Tracer, values map[*testcase.Variable]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return stmt.Execute(ctx, tracer, values)
}
