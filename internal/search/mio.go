package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gensuite/internal/archive"
	"gensuite/internal/chromosome"
)

// MIO keeps one current test case and hill-climbs from it with a bounded
// number of mutations before sampling again, either fresh or from the
// archive. Its parameters move from the initial to the focused phase as the
// budget is used up.
type MIO struct {
	base
	factory  chromosome.Factory[*chromosome.TestCaseChromosome]
	archive  *archive.MIOArchive[*chromosome.TestCaseChromosome]
	goals    []chromosome.FitnessFunction
	schedule MIOParams

	current   MIOPhase
	focused   bool
	solution  *chromosome.TestCaseChromosome
	mutations int
}

func NewMIO(cfg Config) (*MIO, error) {
	b, err := newBase("mio", cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TestCaseFactory == nil {
		return nil, fmt.Errorf("test case factory is required")
	}
	if len(cfg.Goals) == 0 {
		return nil, fmt.Errorf("at least one goal is required")
	}
	schedule := cfg.Params.MIO
	if schedule.Initial.TestsPerTarget <= 0 || schedule.Focused.TestsPerTarget <= 0 {
		return nil, fmt.Errorf("tests per target must be > 0")
	}
	return &MIO{
		base:     b,
		factory:  cfg.TestCaseFactory,
		goals:    cfg.Goals,
		schedule: schedule,
	}, nil
}

func (a *MIO) Generate(ctx context.Context) (*chromosome.TestSuiteChromosome, error) {
	ctx, span := a.startSpan(ctx)
	a.beforeSearchStart()
	a.current = a.schedule.Initial
	a.focused = false
	a.solution = nil
	a.mutations = 0
	a.archive = archive.NewMIOArchive[*chromosome.TestCaseChromosome](a.goals, a.current.TestsPerTarget)
	a.beforeFirstSearchIteration(a.suiteOf(a.archive.Solutions()))

	for a.resourcesLeft(ctx) && a.archive.NumCoveredGoals() < len(a.goals) {
		a.evolve()
		a.afterSearchIteration(a.suiteOf(a.archive.Solutions()))
		a.updateParameters()
	}
	a.afterSearchFinish()

	result := a.suiteOf(a.archive.Solutions())
	return result, a.finish(ctx, span, result, a.archive.NumCoveredGoals())
}

// evolve mutates the current individual until its mutation budget is spent,
// then samples a new candidate. Only a candidate the archive accepts becomes
// current and restarts the budget.
func (a *MIO) evolve() {
	var offspring *chromosome.TestCaseChromosome
	if a.solution != nil && a.mutations < a.current.Mutations {
		offspring = a.solution.Clone()
		offspring.Mutate(a.rng)
		a.mutations++
	} else {
		if a.archive.Empty() || a.rng.Float64() < a.current.RandomTestOrFromArchive {
			offspring = a.factory.Chromosome(a.rng)
		} else if sampled, ok := a.archive.Solution(a.rng); ok {
			sampled.Mutate(a.rng)
			offspring = sampled
		} else {
			offspring = a.factory.Chromosome(a.rng)
		}
	}
	if a.archive.Update(offspring) {
		a.solution = offspring
		a.mutations = 0
	}
}

// updateParameters interpolates the phase parameters linearly in the
// progress towards the exploitation start. The focused phase, once reached,
// is kept for the rest of the search.
func (a *MIO) updateParameters() {
	if a.focused {
		return
	}
	previous := a.current.TestsPerTarget
	p := 1.0
	if a.schedule.ExploitationStartsAt > 0 {
		p = a.progress() / a.schedule.ExploitationStartsAt
	}
	if p >= 1 {
		a.current = a.schedule.Focused
		a.focused = true
		a.logger.Debug("mio entered focused phase", slog.Int("iteration", a.iteration))
	} else {
		initial, focused := a.schedule.Initial, a.schedule.Focused
		a.current = MIOPhase{
			RandomTestOrFromArchive: initial.RandomTestOrFromArchive + (focused.RandomTestOrFromArchive-initial.RandomTestOrFromArchive)*p,
			TestsPerTarget:          interpolateCount(initial.TestsPerTarget, focused.TestsPerTarget, p),
			Mutations:               interpolateCount(initial.Mutations, focused.Mutations, p),
		}
	}
	if a.current.TestsPerTarget != previous {
		a.archive.ShrinkSolutions(a.current.TestsPerTarget)
	}
}

func interpolateCount(initial, focused int, p float64) int {
	return int(math.Ceil(float64(initial) + float64(focused-initial)*p))
}
