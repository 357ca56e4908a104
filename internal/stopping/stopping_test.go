package stopping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gensuite/internal/chromosome"
	"gensuite/internal/execution"
	"gensuite/internal/testcase"
)

type fixedCoverage struct{ value float64 }

func (c *fixedCoverage) ComputeCoverage(chromosome.Chromosome) float64 { return c.value }

func suiteWithCoverage(cov *fixedCoverage) *chromosome.TestSuiteChromosome {
	s := chromosome.NewTestSuiteChromosome(nil, nil)
	s.AddCoverageFunction(cov)
	return s
}

func TestMaxIterations(t *testing.T) {
	c := NewMaxIterations(3)
	c.BeforeSearchStart(time.Now())
	for i := 0; i < 2; i++ {
		c.AfterSearchIteration(nil)
	}
	assert.False(t, c.IsFulfilled())
	assert.InDelta(t, 2.0/3.0, Progress(c), 1e-9)
	c.AfterSearchIteration(nil)
	assert.True(t, c.IsFulfilled())
	assert.Equal(t, "max_iterations 3/3", String(c))
	c.Reset()
	assert.Equal(t, 0, c.CurrentValue())
}

func TestMaxSearchTimeUsesClock(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewMaxSearchTime(10 * time.Second).WithClock(func() time.Time { return now })
	assert.False(t, c.IsFulfilled(), "not started")
	assert.Equal(t, 0.0, Progress(c))

	c.BeforeSearchStart(now)
	now = now.Add(2500 * time.Millisecond)
	assert.Equal(t, 2, c.CurrentValue())
	assert.Equal(t, 10, c.Limit())
	assert.InDelta(t, 0.25, Progress(c), 1e-9)

	now = now.Add(8 * time.Second)
	assert.True(t, c.IsFulfilled())
	assert.Equal(t, 1.0, Progress(c))
}

func TestExecutionCountingConditions(t *testing.T) {
	tests := NewMaxTestExecutions(2)
	statements := NewMaxStatementExecutions(5)
	executor, err := execution.NewExecutor(execution.Config{Timeout: time.Second})
	assert.NoError(t, err)
	executor.AddObserver(tests)
	executor.AddObserver(statements)

	tc := testcase.New()
	tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, 1))
	tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, 2))
	tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, 3))

	executor.Execute(t.Context(), tc)
	assert.Equal(t, 1, tests.CurrentValue())
	assert.Equal(t, 3, statements.CurrentValue())
	assert.False(t, statements.IsFulfilled())

	executor.Execute(t.Context(), tc)
	assert.True(t, tests.IsFulfilled())
	assert.True(t, statements.IsFulfilled())

	tests.BeforeSearchStart(time.Now())
	assert.Equal(t, 0, tests.CurrentValue())
}

func TestMaxCoverage(t *testing.T) {
	cov := &fixedCoverage{value: 0.5}
	suite := suiteWithCoverage(cov)
	c := NewMaxCoverage(100)
	c.BeforeFirstSearchIteration(suite)
	assert.Equal(t, 50, c.CurrentValue())
	assert.False(t, c.IsFulfilled())

	cov.value = 1
	suite.SetChanged(true)
	c.AfterSearchIteration(suite)
	assert.True(t, c.IsFulfilled())
}

func TestMinimumCoveragePlateau(t *testing.T) {
	cov := &fixedCoverage{value: 0.3}
	suite := suiteWithCoverage(cov)
	c := NewMinimumCoveragePlateau(50, 2)
	c.BeforeSearchStart(time.Now())
	c.BeforeFirstSearchIteration(suite)

	c.AfterSearchIteration(suite)
	c.AfterSearchIteration(suite)
	assert.False(t, c.IsFulfilled(), "plateau below the minimum")

	cov.value = 0.6
	suite.SetChanged(true)
	c.AfterSearchIteration(suite)
	assert.Equal(t, 0, c.CurrentValue())
	c.AfterSearchIteration(suite)
	assert.False(t, c.IsFulfilled())
	c.AfterSearchIteration(suite)
	assert.True(t, c.IsFulfilled())
}
