package search

import (
	"context"
	"fmt"
	"sort"

	"gensuite/internal/archive"
	"gensuite/internal/chromosome"
	"gensuite/internal/goal"
	"gensuite/internal/selection"
)

// WholeSuite evolves a population of test suites against suite-level
// fitness. With the archive enabled, every covering test case found along
// the way is kept, and covered goals are excluded from suite fitness.
type WholeSuite struct {
	base
	factory    chromosome.Factory[*chromosome.TestSuiteChromosome]
	selection  selection.Function[*chromosome.TestSuiteChromosome]
	crossover  chromosome.CrossOverFunction[*chromosome.TestSuiteChromosome]
	archive    *archive.CoverageArchive[*chromosome.TestCaseChromosome]
	exclusions *goal.Exclusions
	population []*chromosome.TestSuiteChromosome
}

func NewWholeSuite(cfg Config) (*WholeSuite, error) {
	b, err := newBase("whole_suite", cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TestSuiteFactory == nil {
		return nil, fmt.Errorf("test suite factory is required")
	}
	if cfg.Params.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Params.Elite < 0 || cfg.Params.Elite > cfg.Params.PopulationSize {
		return nil, fmt.Errorf("elite count must be in [0, population size]")
	}
	sel := cfg.SuiteSelection
	if sel == nil {
		sel = selection.Tournament[*chromosome.TestSuiteChromosome]{}
	}
	a := &WholeSuite{
		base:       b,
		factory:    cfg.TestSuiteFactory,
		selection:  sel,
		crossover:  chromosome.SinglePointRelativeCrossOver[*chromosome.TestSuiteChromosome]{},
		exclusions: cfg.Exclusions,
	}
	if cfg.Params.UseArchive {
		a.archive = archive.NewCoverageArchive[*chromosome.TestCaseChromosome](cfg.Goals...)
	}
	return a, nil
}

func (a *WholeSuite) Generate(ctx context.Context) (*chromosome.TestSuiteChromosome, error) {
	ctx, span := a.startSpan(ctx)
	a.beforeSearchStart()
	a.population = make([]*chromosome.TestSuiteChromosome, a.params.PopulationSize)
	for i := range a.population {
		a.population[i] = a.factory.Chromosome(a.rng)
	}
	if a.archive != nil {
		a.archive.Reset()
		a.updateArchive()
	}
	a.sortPopulation()
	a.beforeFirstSearchIteration(a.best())

	for a.resourcesLeft(ctx) && a.best().Fitness() != 0 {
		a.evolve()
		a.afterSearchIteration(a.best())
	}
	a.afterSearchFinish()

	result := a.result()
	return result, a.finish(ctx, span, result, a.coveredGoals(result))
}

func (a *WholeSuite) best() *chromosome.TestSuiteChromosome { return a.population[0] }

func (a *WholeSuite) evolve() {
	next := make([]*chromosome.TestSuiteChromosome, 0, a.params.PopulationSize+1)
	for i := 0; i < a.params.Elite; i++ {
		next = append(next, a.population[i].Clone())
	}
	best := a.best()
	for len(next) < a.params.PopulationSize {
		parents, err := selection.Select(a.rng, a.selection, a.population, 2)
		if err != nil {
			a.abandon(err, "selection")
			break
		}
		parent1, parent2 := parents[0], parents[1]
		offspring1, offspring2 := parent1.Clone(), parent2.Clone()
		if a.rng.Float64() <= a.params.CrossoverRate {
			if err := a.crossover.CrossOver(a.rng, offspring1, offspring2); err != nil {
				a.abandon(err, "crossover")
				continue
			}
		}
		offspring1.Mutate(a.rng)
		offspring2.Mutate(a.rng)

		parentFitness := min(parent1.Fitness(), parent2.Fitness())
		offspringFitness := min(offspring1.Fitness(), offspring2.Fitness())
		parentLength := parent1.Length() + parent2.Length()
		offspringLength := offspring1.Length() + offspring2.Length()
		if offspringFitness < parentFitness || (offspringFitness == parentFitness && offspringLength <= parentLength) {
			for _, o := range []*chromosome.TestSuiteChromosome{offspring1, offspring2} {
				if o.Length() <= 2*best.Length() {
					next = append(next, o)
				} else {
					next = append(next, parents[a.rng.Intn(2)])
				}
			}
		} else {
			next = append(next, parent1, parent2)
		}
	}
	a.population = next
	if a.archive != nil {
		a.updateArchive()
	}
	a.sortPopulation()
}

// updateArchive offers every member test case to the archive. When goals
// become covered they are excluded from suite fitness and all cached suite
// values are dropped.
func (a *WholeSuite) updateArchive() {
	var tests []*chromosome.TestCaseChromosome
	for _, s := range a.population {
		tests = append(tests, s.Tests()...)
	}
	if !a.archive.Update(tests) || a.exclusions == nil {
		return
	}
	var covered []goal.Goal
	for _, ff := range a.archive.CoveredGoals() {
		if g, ok := ff.(GoalFunction); ok {
			covered = append(covered, g.Goal())
		}
	}
	a.exclusions.Reset(covered)
	for _, s := range a.population {
		s.InvalidateCache()
	}
	a.logger.Debug("archive covered new goals", "covered_goals", len(covered))
}

func (a *WholeSuite) sortPopulation() {
	sort.SliceStable(a.population, func(i, j int) bool {
		return a.population[i].Fitness() < a.population[j].Fitness()
	})
}

// result is the best suite, extended by the archived test cases that are
// not already part of it. Exclusions are lifted so the returned suite is
// scored against every goal.
func (a *WholeSuite) result() *chromosome.TestSuiteChromosome {
	if a.exclusions != nil {
		a.exclusions.Clear()
	}
	best := a.best().Clone()
	if a.archive == nil {
		best.InvalidateCache()
		return best
	}
	tests := a.archive.Solutions()
	for _, t := range best.Tests() {
		duplicate := false
		for _, s := range tests {
			if s.Equal(t) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			tests = append(tests, t)
		}
	}
	return a.suiteOf(tests)
}
