package chromosome

import (
	"errors"
	"math/rand"

	"gensuite/internal/testcase"
)

// Factory produces fresh random chromosomes.
type Factory[T Chromosome] interface {
	Chromosome(rng *rand.Rand) T
}

type TestCaseFactory struct {
	cases    testcase.CaseFactory
	factory  *testcase.Factory
	opts     *Options
	fitness  []FitnessFunction
	coverage []CoverageFunction
}

func NewTestCaseFactory(cases testcase.CaseFactory, factory *testcase.Factory, opts *Options, fitness []FitnessFunction, coverage []CoverageFunction) (*TestCaseFactory, error) {
	if cases == nil {
		return nil, errors.New("test case factory is required")
	}
	if factory == nil {
		return nil, errors.New("test factory is required")
	}
	return &TestCaseFactory{cases: cases, factory: factory, opts: opts, fitness: fitness, coverage: coverage}, nil
}

func (f *TestCaseFactory) Chromosome(rng *rand.Rand) *TestCaseChromosome {
	c := NewTestCaseChromosome(f.cases.TestCase(rng), f.factory, f.opts)
	for _, ff := range f.fitness {
		c.AddFitnessFunction(ff)
	}
	for _, cf := range f.coverage {
		c.AddCoverageFunction(cf)
	}
	return c
}

type TestSuiteFactory struct {
	cases    Factory[*TestCaseChromosome]
	opts     *Options
	minTests int
	maxTests int
	fitness  []FitnessFunction
	coverage []CoverageFunction
}

func NewTestSuiteFactory(cases Factory[*TestCaseChromosome], opts *Options, minTests, maxTests int, fitness []FitnessFunction, coverage []CoverageFunction) (*TestSuiteFactory, error) {
	if cases == nil {
		return nil, errors.New("test case chromosome factory is required")
	}
	if minTests < 0 || maxTests < minTests {
		return nil, errors.New("initial test bounds must satisfy 0 <= min <= max")
	}
	return &TestSuiteFactory{cases: cases, opts: opts, minTests: minTests, maxTests: maxTests, fitness: fitness, coverage: coverage}, nil
}

// Chromosome builds a suite with a uniformly drawn number of test cases in
// [minTests, maxTests].
func (f *TestSuiteFactory) Chromosome(rng *rand.Rand) *TestSuiteChromosome {
	s := NewTestSuiteChromosome(f.cases, f.opts)
	n := f.minTests + rng.Intn(f.maxTests-f.minTests+1)
	for i := 0; i < n; i++ {
		s.AddTest(f.cases.Chromosome(rng))
	}
	for _, ff := range f.fitness {
		s.AddFitnessFunction(ff)
	}
	for _, cf := range f.coverage {
		s.AddCoverageFunction(cf)
	}
	return s
}
