package fitness

import (
	"context"
	"fmt"
	"math"

	"gensuite/internal/chromosome"
	"gensuite/internal/execution"
	"gensuite/internal/goal"
	"gensuite/internal/instrumentation"
)

// Runner executes test case chromosomes on demand.
type Runner struct {
	executor *execution.Executor
	ctx      context.Context
}

func NewRunner(executor *execution.Executor) *Runner {
	return &Runner{executor: executor, ctx: context.Background()}
}

// Bind runs later executions under ctx. Bind must not be called while a
// search is evaluating.
func (r *Runner) Bind(ctx context.Context) { r.ctx = ctx }

// Result re-executes c only when its last result is missing or stale. A result
// produced after the bound context ended is returned but not kept.
func (r *Runner) Result(c *chromosome.TestCaseChromosome) *execution.Result {
	if !c.NeedsExecution() {
		return c.LastExecutionResult()
	}
	result := r.executor.Execute(r.ctx, c.TestCase())
	if r.ctx.Err() != nil {
		return result
	}
	c.SetLastExecutionResult(result)
	return result
}

// Trace merges the traces of every test case in c.
func (r *Runner) Trace(c chromosome.Chromosome) *instrumentation.ExecutionTrace {
	merged := instrumentation.NewExecutionTrace()
	switch v := c.(type) {
	case *chromosome.TestCaseChromosome:
		merged.Merge(r.Result(v).Trace)
	case *chromosome.TestSuiteChromosome:
		for _, t := range v.Tests() {
			merged.Merge(r.Result(t).Trace)
		}
	}
	return merged
}

// GoalFitness scores a single coverage goal. On a suite it is the best
// value over members.
type GoalFitness struct {
	goal   goal.Goal
	props  *instrumentation.SubjectProperties
	runner *Runner
}

func NewGoalFitness(g goal.Goal, props *instrumentation.SubjectProperties, runner *Runner) *GoalFitness {
	return &GoalFitness{goal: g, props: props, runner: runner}
}

func (f *GoalFitness) Goal() goal.Goal { return f.goal }

func (f *GoalFitness) String() string { return f.goal.String() }

func (f *GoalFitness) ComputeFitness(c chromosome.Chromosome) float64 {
	switch v := c.(type) {
	case *chromosome.TestCaseChromosome:
		return f.goal.Distance(f.props, f.runner.Result(v).Trace)
	case *chromosome.TestSuiteChromosome:
		best := math.Inf(1)
		for _, t := range v.Tests() {
			best = min(best, f.goal.Distance(f.props, f.runner.Result(t).Trace))
		}
		return best
	default:
		panic(fmt.Sprintf("unsupported chromosome %T", c))
	}
}

func (f *GoalFitness) IsCovered(c chromosome.Chromosome) bool {
	return f.ComputeFitness(c) == 0
}

// GoalFitnessFunctions builds one GoalFitness per goal, in order.
func GoalFitnessFunctions(goals []goal.Goal, props *instrumentation.SubjectProperties, runner *Runner) []*GoalFitness {
	out := make([]*GoalFitness, len(goals))
	for i, g := range goals {
		out[i] = NewGoalFitness(g, props, runner)
	}
	return out
}

// AsFitnessFunctions widens a GoalFitness slice to the chromosome interface.
func AsFitnessFunctions(goals []*GoalFitness) []chromosome.FitnessFunction {
	out := make([]chromosome.FitnessFunction, len(goals))
	for i, g := range goals {
		out[i] = g
	}
	return out
}
