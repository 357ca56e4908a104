package search

import (
	"context"
	"fmt"

	"gensuite/internal/archive"
	"gensuite/internal/chromosome"
)

// RandomSearch samples whole suites and keeps the best one seen.
type RandomSearch struct {
	base
	factory chromosome.Factory[*chromosome.TestSuiteChromosome]
	best    *chromosome.TestSuiteChromosome
}

func NewRandomSearch(cfg Config) (*RandomSearch, error) {
	b, err := newBase("random", cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TestSuiteFactory == nil {
		return nil, fmt.Errorf("test suite factory is required")
	}
	return &RandomSearch{base: b, factory: cfg.TestSuiteFactory}, nil
}

func (a *RandomSearch) Generate(ctx context.Context) (*chromosome.TestSuiteChromosome, error) {
	ctx, span := a.startSpan(ctx)
	a.beforeSearchStart()
	a.best = a.factory.Chromosome(a.rng)
	a.beforeFirstSearchIteration(a.best)
	for a.resourcesLeft(ctx) && a.best.Fitness() != 0 {
		candidate := a.factory.Chromosome(a.rng)
		if candidate.Fitness() < a.best.Fitness() {
			a.best = candidate
		}
		a.afterSearchIteration(a.best)
	}
	a.afterSearchFinish()
	return a.best, a.finish(ctx, span, a.best, a.coveredGoals(a.best))
}

// RandomTestCaseSearch samples single test cases, feeds every one to a
// coverage archive and returns the archived solutions.
type RandomTestCaseSearch struct {
	base
	factory chromosome.Factory[*chromosome.TestCaseChromosome]
	archive *archive.CoverageArchive[*chromosome.TestCaseChromosome]
}

func NewRandomTestCaseSearch(cfg Config) (*RandomTestCaseSearch, error) {
	b, err := newBase("random_test_case", cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TestCaseFactory == nil {
		return nil, fmt.Errorf("test case factory is required")
	}
	return &RandomTestCaseSearch{
		base:    b,
		factory: cfg.TestCaseFactory,
		archive: archive.NewCoverageArchive[*chromosome.TestCaseChromosome](cfg.Goals...),
	}, nil
}

func (a *RandomTestCaseSearch) Generate(ctx context.Context) (*chromosome.TestSuiteChromosome, error) {
	ctx, span := a.startSpan(ctx)
	a.beforeSearchStart()
	a.archive.Reset()
	a.archive.Update([]*chromosome.TestCaseChromosome{a.factory.Chromosome(a.rng)})
	a.beforeFirstSearchIteration(a.suiteOf(a.archive.Solutions()))
	for a.resourcesLeft(ctx) && len(a.archive.UncoveredGoals()) > 0 {
		a.archive.Update([]*chromosome.TestCaseChromosome{a.factory.Chromosome(a.rng)})
		a.afterSearchIteration(a.suiteOf(a.archive.Solutions()))
	}
	a.afterSearchFinish()
	result := a.suiteOf(a.archive.Solutions())
	return result, a.finish(ctx, span, result, a.archive.NumCoveredGoals())
}
