package chromosome

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gensuite/internal/execution"
	"gensuite/internal/testcase"
)

// TestCaseChromosome wraps one test case and its last execution result.
type TestCaseChromosome struct {
	base
	testCase      *testcase.TestCase
	factory       *testcase.Factory
	opts          *Options
	lastResult    *execution.Result
	resultVersion uint64
}

// NewTestCaseChromosome wraps tc. A nil factory produces a chromosome that
// cannot be mutated or recombined.
func NewTestCaseChromosome(tc *testcase.TestCase, factory *testcase.Factory, opts *Options) *TestCaseChromosome {
	if tc == nil {
		tc = testcase.New()
	}
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	return &TestCaseChromosome{base: newBase(), testCase: tc, factory: factory, opts: opts}
}

func (c *TestCaseChromosome) TestCase() *testcase.TestCase { return c.testCase }

func (c *TestCaseChromosome) Size() int { return c.testCase.Size() }

func (c *TestCaseChromosome) Length() int { return c.testCase.Size() }

func (c *TestCaseChromosome) LastExecutionResult() *execution.Result { return c.lastResult }

func (c *TestCaseChromosome) SetLastExecutionResult(result *execution.Result) {
	c.lastResult = result
	c.resultVersion = c.version
}

// NeedsExecution reports whether the last result is missing or predates the
// latest change.
func (c *TestCaseChromosome) NeedsExecution() bool {
	return c.lastResult == nil || c.resultVersion != c.version
}

func (c *TestCaseChromosome) Fitness() float64 { return c.fitness(c) }

func (c *TestCaseChromosome) FitnessFor(ff FitnessFunction) float64 { return c.fitnessFor(c, ff) }

func (c *TestCaseChromosome) IsCovered(ff FitnessFunction) bool { return c.isCovered(c, ff) }

func (c *TestCaseChromosome) Coverage() float64 { return c.coverage(c) }

func (c *TestCaseChromosome) CoverageFor(cf CoverageFunction) float64 { return c.coverageFor(c, cf) }

func (c *TestCaseChromosome) Clone() *TestCaseChromosome {
	out := &TestCaseChromosome{
		base:          base{id: newID()},
		testCase:      c.testCase.Clone(),
		factory:       c.factory,
		opts:          c.opts,
		lastResult:    c.lastResult,
		resultVersion: c.resultVersion,
	}
	out.cloneFrom(&c.base)
	return out
}

// Equal compares test cases structurally and, when both sides have been
// executed, requires identical traces.
func (c *TestCaseChromosome) Equal(other *TestCaseChromosome) bool {
	if c == other {
		return true
	}
	if other == nil || !c.testCase.Equal(other.testCase) {
		return false
	}
	if c.lastResult != nil && other.lastResult != nil {
		return c.lastResult.Trace.Equal(other.lastResult.Trace)
	}
	return true
}

func (c *TestCaseChromosome) Hash() uint64 { return c.testCase.Hash() }

// CrossOver replaces this test case with the first position1 statements of
// its own followed by the statements of other from position2 on, appended
// through the test factory. An offspring longer than the configured maximum
// is dropped and the chromosome stays as it was.
func (c *TestCaseChromosome) CrossOver(rng *rand.Rand, other *TestCaseChromosome, position1, position2 int) error {
	if c.factory == nil {
		return errors.New("crossover requires a test factory")
	}
	if position1 < 0 || position1 > c.Size() || position2 < 0 || position2 > other.Size() {
		return fmt.Errorf("crossover positions %d/%d out of range for sizes %d/%d", position1, position2, c.Size(), other.Size())
	}
	offspring := c.testCase.Clone()
	offspring.Chop(position1 - 1)
	for j := position2; j < other.Size(); j++ {
		if err := c.factory.AppendStatement(rng, offspring, other.testCase.Statement(j)); err != nil {
			return fmt.Errorf("crossover append: %w", err)
		}
	}
	if offspring.Size() <= c.opts.ChromosomeLength {
		c.testCase = offspring
		c.SetChanged(true)
	}
	return nil
}

// Mutate applies deletion, change and insertion, each gated by its
// configured probability. A result without a call on the subject under test
// is rolled back and a single insertion is tried instead.
func (c *TestCaseChromosome) Mutate(rng *rand.Rand) bool {
	if c.factory == nil {
		return false
	}
	snapshot := c.testCase.Clone()
	changed := false
	if c.opts.TestDeleteProbability >= rng.Float64() && c.mutationDelete(rng) {
		changed = true
	}
	if c.opts.TestChangeProbability >= rng.Float64() && c.mutationChange(rng) {
		changed = true
	}
	if c.opts.TestInsertProbability >= rng.Float64() && c.mutationInsert(rng) {
		changed = true
	}
	if !c.factory.HasCallOnSUT(c.testCase) {
		c.testCase = snapshot
		changed = c.insertOnce(rng)
	}
	if changed {
		c.SetChanged(true)
	}
	return changed
}

// lastMutatablePosition is the position of the first raised exception when
// still in range, the last statement otherwise, and -1 for an empty case.
func (c *TestCaseChromosome) lastMutatablePosition() int {
	size := c.testCase.Size()
	if c.lastResult != nil {
		if pos, ok := c.lastResult.FirstExceptionPosition(); ok && pos < size {
			return pos
		}
	}
	return size - 1
}

func (c *TestCaseChromosome) mutationDelete(rng *rand.Rand) bool {
	last := c.lastMutatablePosition()
	if last < 0 {
		return false
	}
	p := 1.0 / float64(last+1)
	changed := false
	for idx := last; idx >= 0; idx-- {
		if idx >= c.testCase.Size() {
			continue
		}
		if rng.Float64() <= p && c.factory.DeleteStatementGracefully(rng, c.testCase, idx) {
			changed = true
		}
	}
	return changed
}

func (c *TestCaseChromosome) mutationChange(rng *rand.Rand) bool {
	last := c.lastMutatablePosition()
	if last < 0 {
		return false
	}
	p := 1.0 / float64(last+1)
	changed := false
	for position := 0; position <= last && position < c.testCase.Size(); position++ {
		if rng.Float64() >= p {
			continue
		}
		if c.factory.MutateStatement(rng, c.testCase, position) {
			changed = true
		} else if c.factory.ChangeRandomCall(rng, c.testCase, c.testCase.Statement(position)) {
			changed = true
		}
	}
	return changed
}

func (c *TestCaseChromosome) mutationInsert(rng *rand.Rand) bool {
	alpha := c.opts.StatementInsertionProbability
	exponent := 1.0
	changed := false
	for rng.Float64() <= math.Pow(alpha, exponent) && c.testCase.Size() < c.opts.ChromosomeLength &&
		int(exponent) <= c.opts.ChromosomeLength {
		if c.insertOnce(rng) {
			changed = true
		}
		exponent++
	}
	return changed
}

// insertOnce inserts one random statement, undoing it if the case would grow
// past the maximum length.
func (c *TestCaseChromosome) insertOnce(rng *rand.Rand) bool {
	before := c.testCase.Clone()
	pos := c.factory.InsertRandomStatement(rng, c.testCase, c.lastMutatablePosition())
	if pos < 0 || pos >= c.testCase.Size() {
		return false
	}
	if c.testCase.Size() > c.opts.ChromosomeLength {
		c.testCase = before
		return false
	}
	return true
}
