// Package stopping holds the budgets a search polls at the top of every
// iteration.
package stopping

import (
	"fmt"
	"math"
	"time"

	"gensuite/internal/chromosome"
	"gensuite/internal/execution"
	"gensuite/internal/testcase"
)

// Condition is a search budget. The lifecycle hooks mirror the search
// observer hooks so a search can drive conditions and observers alike.
type Condition interface {
	Name() string
	CurrentValue() int
	Limit() int
	IsFulfilled() bool
	Reset()

	BeforeSearchStart(start time.Time)
	BeforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome)
	AfterSearchIteration(best *chromosome.TestSuiteChromosome)
	AfterSearchFinish()
}

// Progress is the fraction of the budget c has used, clamped to [0, 1].
// Conditions may report finer progress than CurrentValue/Limit by
// implementing Progress() float64.
func Progress(c Condition) float64 {
	if p, ok := c.(interface{ Progress() float64 }); ok {
		return clamp(p.Progress())
	}
	if c.Limit() <= 0 {
		return 1
	}
	return clamp(float64(c.CurrentValue()) / float64(c.Limit()))
}

func clamp(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// noHooks gives conditions that only care about some hooks empty defaults.
type noHooks struct{}

func (noHooks) BeforeSearchStart(time.Time)                                 {}
func (noHooks) BeforeFirstSearchIteration(*chromosome.TestSuiteChromosome) {}
func (noHooks) AfterSearchIteration(*chromosome.TestSuiteChromosome)       {}
func (noHooks) AfterSearchFinish()                                          {}

// String renders a condition as "name value/limit".
func String(c Condition) string {
	return fmt.Sprintf("%s %d/%d", c.Name(), c.CurrentValue(), c.Limit())
}

// MaxIterations stops after a number of search iterations.
type MaxIterations struct {
	noHooks
	limit      int
	iterations int
}

func NewMaxIterations(limit int) *MaxIterations { return &MaxIterations{limit: limit} }

func (*MaxIterations) Name() string        { return "max_iterations" }
func (c *MaxIterations) CurrentValue() int { return c.iterations }
func (c *MaxIterations) Limit() int        { return c.limit }
func (c *MaxIterations) IsFulfilled() bool { return c.iterations >= c.limit }
func (c *MaxIterations) Reset()            { c.iterations = 0 }

func (c *MaxIterations) BeforeSearchStart(time.Time) { c.iterations = 0 }

func (c *MaxIterations) AfterSearchIteration(*chromosome.TestSuiteChromosome) { c.iterations++ }

// MaxSearchTime stops once the search has run for the configured duration.
// Values are in whole seconds.
type MaxSearchTime struct {
	noHooks
	limit time.Duration
	start time.Time
	now   func() time.Time
}

func NewMaxSearchTime(limit time.Duration) *MaxSearchTime {
	return &MaxSearchTime{limit: limit, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (c *MaxSearchTime) WithClock(now func() time.Time) *MaxSearchTime {
	c.now = now
	return c
}

func (*MaxSearchTime) Name() string { return "max_search_time" }

func (c *MaxSearchTime) CurrentValue() int {
	if c.start.IsZero() {
		return 0
	}
	return int(c.now().Sub(c.start) / time.Second)
}

func (c *MaxSearchTime) Limit() int { return int(c.limit / time.Second) }

func (c *MaxSearchTime) IsFulfilled() bool {
	return !c.start.IsZero() && c.now().Sub(c.start) >= c.limit
}

func (c *MaxSearchTime) Progress() float64 {
	if c.start.IsZero() || c.limit <= 0 {
		return 0
	}
	return float64(c.now().Sub(c.start)) / float64(c.limit)
}

func (c *MaxSearchTime) Reset() { c.start = time.Time{} }

func (c *MaxSearchTime) BeforeSearchStart(start time.Time) { c.start = start }

// MaxTestExecutions counts executed test cases. Register it with the
// executor as an observer.
type MaxTestExecutions struct {
	noHooks
	limit      int
	executions int
}

func NewMaxTestExecutions(limit int) *MaxTestExecutions { return &MaxTestExecutions{limit: limit} }

func (*MaxTestExecutions) Name() string        { return "max_test_executions" }
func (c *MaxTestExecutions) CurrentValue() int { return c.executions }
func (c *MaxTestExecutions) Limit() int        { return c.limit }
func (c *MaxTestExecutions) IsFulfilled() bool { return c.executions >= c.limit }
func (c *MaxTestExecutions) Reset()            { c.executions = 0 }

func (c *MaxTestExecutions) BeforeSearchStart(time.Time) { c.executions = 0 }

func (c *MaxTestExecutions) BeforeTestCaseExecution(*testcase.TestCase) { c.executions++ }

func (c *MaxTestExecutions) AfterTestCaseExecution(*testcase.TestCase, *execution.Result) {}

// MaxStatementExecutions counts executed statements across test cases.
type MaxStatementExecutions struct {
	noHooks
	limit      int
	executions int
}

func NewMaxStatementExecutions(limit int) *MaxStatementExecutions {
	return &MaxStatementExecutions{limit: limit}
}

func (*MaxStatementExecutions) Name() string        { return "max_statement_executions" }
func (c *MaxStatementExecutions) CurrentValue() int { return c.executions }
func (c *MaxStatementExecutions) Limit() int        { return c.limit }
func (c *MaxStatementExecutions) IsFulfilled() bool { return c.executions >= c.limit }
func (c *MaxStatementExecutions) Reset()            { c.executions = 0 }

func (c *MaxStatementExecutions) BeforeSearchStart(time.Time) { c.executions = 0 }

func (c *MaxStatementExecutions) BeforeTestCaseExecution(*testcase.TestCase) {}

func (c *MaxStatementExecutions) AfterTestCaseExecution(_ *testcase.TestCase, result *execution.Result) {
	c.executions += result.ExecutedStatements
}

// MaxCoverage stops once the best suite reaches a coverage percentage.
type MaxCoverage struct {
	noHooks
	limit    int
	coverage int
}

func NewMaxCoverage(percent int) *MaxCoverage { return &MaxCoverage{limit: percent} }

func (*MaxCoverage) Name() string        { return "max_coverage" }
func (c *MaxCoverage) CurrentValue() int { return c.coverage }
func (c *MaxCoverage) Limit() int        { return c.limit }
func (c *MaxCoverage) IsFulfilled() bool { return c.coverage >= c.limit }
func (c *MaxCoverage) Reset()            { c.coverage = 0 }

func (c *MaxCoverage) BeforeSearchStart(time.Time) { c.coverage = 0 }

func (c *MaxCoverage) BeforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome) {
	c.coverage = percent(initial)
}

func (c *MaxCoverage) AfterSearchIteration(best *chromosome.TestSuiteChromosome) {
	c.coverage = percent(best)
}

// MinimumCoveragePlateau stops once coverage is at least the minimum and has
// not changed for the given number of iterations.
type MinimumCoveragePlateau struct {
	noHooks
	minimum    int
	plateau    int
	coverage   int
	iterations int
}

func NewMinimumCoveragePlateau(minimumPercent, plateauIterations int) *MinimumCoveragePlateau {
	return &MinimumCoveragePlateau{minimum: minimumPercent, plateau: plateauIterations}
}

func (*MinimumCoveragePlateau) Name() string        { return "minimum_coverage_plateau" }
func (c *MinimumCoveragePlateau) CurrentValue() int { return c.iterations }
func (c *MinimumCoveragePlateau) Limit() int        { return c.plateau }

func (c *MinimumCoveragePlateau) IsFulfilled() bool {
	return c.coverage >= c.minimum && c.iterations >= c.plateau
}

func (c *MinimumCoveragePlateau) Reset() {
	c.coverage = 0
	c.iterations = 0
}

func (c *MinimumCoveragePlateau) BeforeSearchStart(time.Time) { c.Reset() }

func (c *MinimumCoveragePlateau) BeforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome) {
	c.coverage = percent(initial)
}

func (c *MinimumCoveragePlateau) AfterSearchIteration(best *chromosome.TestSuiteChromosome) {
	coverage := percent(best)
	if coverage == c.coverage {
		c.iterations++
		return
	}
	c.coverage = coverage
	c.iterations = 0
}

func percent(suite *chromosome.TestSuiteChromosome) int {
	if suite == nil {
		return 0
	}
	return int(math.Floor(suite.Coverage()*100 + 1e-9))
}
