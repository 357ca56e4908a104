package search

import (
	"context"
	"fmt"
	"math"

	"gensuite/internal/archive"
	"gensuite/internal/chromosome"
	"gensuite/internal/ranking"
	"gensuite/internal/selection"
)

// MOSA treats every goal as its own objective. Survivors are chosen by
// preference sorting over the uncovered goals; covering test cases go to a
// coverage archive that also decides when the search is done. Parents are
// drawn from a population kept in rank order, and a tournament compares
// rank first and distance second.
type MOSA struct {
	base
	factory    chromosome.Factory[*chromosome.TestCaseChromosome]
	selection  selection.Function[*chromosome.TestCaseChromosome]
	crossover  chromosome.CrossOverFunction[*chromosome.TestCaseChromosome]
	archive    *archive.CoverageArchive[*chromosome.TestCaseChromosome]
	population []*chromosome.TestCaseChromosome

	ranks    *ranking.Ranking[*chromosome.TestCaseChromosome]
	distance ranking.Distances
}

func NewMOSA(cfg Config) (*MOSA, error) {
	b, err := newBase("mosa", cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TestCaseFactory == nil {
		return nil, fmt.Errorf("test case factory is required")
	}
	if cfg.Params.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if len(cfg.Goals) == 0 {
		return nil, fmt.Errorf("at least one goal is required")
	}
	a := &MOSA{
		base:      b,
		factory:   cfg.TestCaseFactory,
		selection: cfg.CaseSelection,
		crossover: chromosome.SinglePointRelativeCrossOver[*chromosome.TestCaseChromosome]{},
		archive:   archive.NewCoverageArchive[*chromosome.TestCaseChromosome](cfg.Goals...),
	}
	switch sel := cfg.CaseSelection.(type) {
	case nil:
		a.selection = selection.RankTournament[*chromosome.TestCaseChromosome]{Better: a.preferred}
	case selection.Tournament[*chromosome.TestCaseChromosome]:
		a.selection = selection.RankTournament[*chromosome.TestCaseChromosome]{Size: sel.Size, Better: a.preferred}
	}
	return a, nil
}

// preferred reports whether x beats y: a lower front wins, then a larger
// distance within the front.
func (a *MOSA) preferred(x, y *chromosome.TestCaseChromosome) bool {
	rx, ry := a.rankOf(x), a.rankOf(y)
	if rx != ry {
		return rx < ry
	}
	return a.distance.Of(x) > a.distance.Of(y)
}

func (a *MOSA) rankOf(c *chromosome.TestCaseChromosome) int {
	if a.ranks == nil {
		return 0
	}
	if r := a.ranks.Rank(c); r >= 0 {
		return r
	}
	return math.MaxInt
}

// rank orders the population front by front, each front by descending
// distance, and remembers ranks and distances for selection.
func (a *MOSA) rank(uncovered []chromosome.FitnessFunction) {
	a.ranks = ranking.PreferenceSorting(a.population, uncovered, len(a.population))
	a.distance = make(ranking.Distances, len(a.population))
	ordered := make([]*chromosome.TestCaseChromosome, 0, len(a.population))
	for i := 0; i < a.ranks.NumFronts(); i++ {
		front := append([]*chromosome.TestCaseChromosome(nil), a.ranks.Front(i)...)
		d := a.distances(front, uncovered)
		ranking.SortByDistance(front, d)
		for _, c := range front {
			a.distance[c.ID()] = d.Of(c)
		}
		ordered = append(ordered, front...)
	}
	a.population = ordered
}

func (a *MOSA) Generate(ctx context.Context) (*chromosome.TestSuiteChromosome, error) {
	ctx, span := a.startSpan(ctx)
	a.beforeSearchStart()
	a.archive.Reset()
	a.population = make([]*chromosome.TestCaseChromosome, a.params.PopulationSize)
	for i := range a.population {
		a.population[i] = a.factory.Chromosome(a.rng)
	}
	a.archive.Update(a.population)
	a.rank(a.archive.UncoveredGoals())
	a.beforeFirstSearchIteration(a.suiteOf(a.archive.Solutions()))

	for a.resourcesLeft(ctx) && len(a.archive.UncoveredGoals()) > 0 {
		a.evolve()
		a.afterSearchIteration(a.suiteOf(a.archive.Solutions()))
	}
	a.afterSearchFinish()

	result := a.suiteOf(a.archive.Solutions())
	return result, a.finish(ctx, span, result, a.archive.NumCoveredGoals())
}

func (a *MOSA) evolve() {
	offspring := a.breedNextGeneration()
	a.archive.Update(offspring)

	union := make([]*chromosome.TestCaseChromosome, 0, len(a.population)+len(offspring))
	union = append(union, a.population...)
	union = append(union, offspring...)

	uncovered := a.archive.UncoveredGoals()
	fronts := ranking.PreferenceSorting(union, uncovered, a.params.PopulationSize)

	remain := max(a.params.PopulationSize, len(fronts.Front(0)))
	next := make([]*chromosome.TestCaseChromosome, 0, remain)
	index := 0
	front := fronts.Front(0)
	for len(front) > 0 && remain > 0 && remain >= len(front) {
		next = append(next, front...)
		remain -= len(front)
		index++
		front = fronts.Front(index)
	}
	if remain > 0 && len(front) > 0 {
		front = append([]*chromosome.TestCaseChromosome(nil), front...)
		ranking.SortByDistance(front, a.distances(front, uncovered))
		next = append(next, front[:remain]...)
	}
	a.population = next
	a.rank(uncovered)
}

func (a *MOSA) distances(front []*chromosome.TestCaseChromosome, goals []chromosome.FitnessFunction) ranking.Distances {
	if a.params.Distance == DistanceEpsilon {
		return ranking.EpsilonDominance(front, goals)
	}
	return ranking.CrowdingDistance(front, goals)
}

// breedNextGeneration produces an offspring population of the configured
// size. An offspring whose mutation changed nothing is dropped. Afterwards a
// share of fresh or archive-derived test cases is added.
func (a *MOSA) breedNextGeneration() []*chromosome.TestCaseChromosome {
	size := a.params.PopulationSize
	offspring := make([]*chromosome.TestCaseChromosome, 0, size+2)
	for attempts := 0; len(offspring) < size && attempts < 10*size; attempts++ {
		parents, err := selection.Select(a.rng, a.selection, a.population, 2)
		if err != nil {
			a.abandon(err, "selection")
			break
		}
		offspring1, offspring2 := parents[0].Clone(), parents[1].Clone()
		if a.rng.Float64() <= a.params.CrossoverRate {
			if err := a.crossover.CrossOver(a.rng, offspring1, offspring2); err != nil {
				a.abandon(err, "crossover")
				continue
			}
		}
		for _, o := range []*chromosome.TestCaseChromosome{offspring1, offspring2} {
			if o.Mutate(a.rng) {
				offspring = append(offspring, o)
			}
		}
	}

	injections := int(float64(size) * a.params.TestInsertionProbability)
	for i := 0; i < injections; i++ {
		var candidate *chromosome.TestCaseChromosome
		solutions := a.archive.Solutions()
		if len(solutions) == 0 || a.rng.Float64() < 0.5 {
			candidate = a.factory.Chromosome(a.rng)
		} else {
			candidate = solutions[a.rng.Intn(len(solutions))].Clone()
			candidate.Mutate(a.rng)
		}
		if candidate.Changed() && candidate.Size() > 0 {
			offspring = append(offspring, candidate)
		}
	}
	return offspring
}
