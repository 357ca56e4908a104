// Package search implements the search algorithms: random search over suites
// and test cases, the whole-suite genetic algorithm, MOSA and MIO.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gensuite/internal/chromosome"
	"gensuite/internal/goal"
	"gensuite/internal/selection"
	"gensuite/internal/stopping"
)

var tracer = otel.Tracer("gensuite.search")

// Algorithm produces a test suite. Generate always returns a non-nil suite;
// the error is non-nil only when ctx ended the search early.
type Algorithm interface {
	Name() string
	Generate(ctx context.Context) (*chromosome.TestSuiteChromosome, error)
}

// Observer follows the lifecycle of a search.
type Observer interface {
	BeforeSearchStart(start time.Time)
	BeforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome)
	AfterSearchIteration(best *chromosome.TestSuiteChromosome)
	AfterSearchFinish()
}

// GoalFunction is a test-case fitness function bound to one coverage goal.
// The whole-suite algorithm uses the goal to maintain its exclusion set.
type GoalFunction interface {
	chromosome.FitnessFunction
	Goal() goal.Goal
}

// MIOPhase is one end of the MIO parameter schedule.
type MIOPhase struct {
	// RandomTestOrFromArchive is the probability of sampling a fresh test
	// case instead of mutating one from the archive.
	RandomTestOrFromArchive float64
	TestsPerTarget          int
	Mutations               int
}

type MIOParams struct {
	Initial MIOPhase
	Focused MIOPhase
	// ExploitationStartsAt is the search progress in [0, 1] at which the
	// focused phase begins.
	ExploitationStartsAt float64
}

// Distance names the MOSA front tie-break.
type Distance string

const (
	DistanceCrowding Distance = "crowding"
	DistanceEpsilon  Distance = "epsilon"
)

type Params struct {
	PopulationSize int
	Elite          int
	CrossoverRate  float64
	// TestInsertionProbability scales the fresh or archive-derived test
	// cases MOSA adds to every offspring population.
	TestInsertionProbability float64
	UseArchive               bool
	Distance                 Distance
	MIO                      MIOParams
}

func DefaultParams() Params {
	return Params{
		PopulationSize:           50,
		Elite:                    1,
		CrossoverRate:            0.75,
		TestInsertionProbability: 0.1,
		Distance:                 DistanceCrowding,
		MIO: MIOParams{
			Initial:              MIOPhase{RandomTestOrFromArchive: 0.5, TestsPerTarget: 10, Mutations: 1},
			Focused:              MIOPhase{RandomTestOrFromArchive: 0, TestsPerTarget: 1, Mutations: 10},
			ExploitationStartsAt: 0.5,
		},
	}
}

// Config wires an algorithm to its collaborators. Not every algorithm uses
// every field; the constructors check what they need.
type Config struct {
	Logger     *slog.Logger
	Rand       *rand.Rand
	Conditions []stopping.Condition
	Observers  []Observer
	Params     Params

	TestCaseFactory  chromosome.Factory[*chromosome.TestCaseChromosome]
	TestSuiteFactory chromosome.Factory[*chromosome.TestSuiteChromosome]

	// Goals are the test-case fitness functions, one per coverage goal.
	Goals []chromosome.FitnessFunction
	// SuiteFitness and SuiteCoverage are registered on every suite handed
	// to observers or returned.
	SuiteFitness  []chromosome.FitnessFunction
	SuiteCoverage []chromosome.CoverageFunction
	// Exclusions is shared with the suite fitness functions of the
	// whole-suite algorithm.
	Exclusions *goal.Exclusions

	CaseSelection  selection.Function[*chromosome.TestCaseChromosome]
	SuiteSelection selection.Function[*chromosome.TestSuiteChromosome]
}

// base carries what every algorithm shares: budget polling, observer
// notification, suite assembly and tracing.
type base struct {
	name       string
	logger     *slog.Logger
	rng        *rand.Rand
	conditions []stopping.Condition
	observers  []Observer
	params     Params

	goals         []chromosome.FitnessFunction
	suiteFitness  []chromosome.FitnessFunction
	suiteCoverage []chromosome.CoverageFunction
	iteration     int
}

func newBase(name string, cfg Config) (base, error) {
	if cfg.Rand == nil {
		return base{}, fmt.Errorf("random source is required")
	}
	if len(cfg.Conditions) == 0 {
		return base{}, fmt.Errorf("at least one stopping condition is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		name:          name,
		logger:        logger.With("algorithm", name),
		rng:           cfg.Rand,
		conditions:    cfg.Conditions,
		observers:     cfg.Observers,
		params:        cfg.Params,
		goals:         cfg.Goals,
		suiteFitness:  cfg.SuiteFitness,
		suiteCoverage: cfg.SuiteCoverage,
	}, nil
}

func (b *base) Name() string { return b.name }

// resourcesLeft is false once ctx is done or any stopping condition holds.
func (b *base) resourcesLeft(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, c := range b.conditions {
		if c.IsFulfilled() {
			return false
		}
	}
	return true
}

// progress is the largest budget fraction used by any condition.
func (b *base) progress() float64 {
	p := 0.0
	for _, c := range b.conditions {
		p = max(p, stopping.Progress(c))
	}
	return p
}

func (b *base) beforeSearchStart() {
	start := time.Now()
	b.iteration = 0
	for _, c := range b.conditions {
		c.BeforeSearchStart(start)
	}
	for _, o := range b.observers {
		o.BeforeSearchStart(start)
	}
}

func (b *base) beforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome) {
	for _, c := range b.conditions {
		c.BeforeFirstSearchIteration(initial)
	}
	for _, o := range b.observers {
		o.BeforeFirstSearchIteration(initial)
	}
}

func (b *base) afterSearchIteration(best *chromosome.TestSuiteChromosome) {
	b.iteration++
	for _, c := range b.conditions {
		c.AfterSearchIteration(best)
	}
	for _, o := range b.observers {
		o.AfterSearchIteration(best)
	}
}

func (b *base) afterSearchFinish() {
	for _, c := range b.conditions {
		c.AfterSearchFinish()
	}
	for _, o := range b.observers {
		o.AfterSearchFinish()
	}
}

// suiteOf wraps tests in a suite scored by the configured suite functions.
func (b *base) suiteOf(tests []*chromosome.TestCaseChromosome) *chromosome.TestSuiteChromosome {
	suite := chromosome.NewTestSuiteChromosome(nil, nil)
	for _, t := range tests {
		suite.AddTest(t.Clone())
	}
	b.score(suite)
	return suite
}

func (b *base) score(suite *chromosome.TestSuiteChromosome) {
	for _, ff := range b.suiteFitness {
		suite.AddFitnessFunction(ff)
	}
	for _, cf := range b.suiteCoverage {
		suite.AddCoverageFunction(cf)
	}
}

// coveredGoals counts the goals covered by some member of suite.
func (b *base) coveredGoals(suite *chromosome.TestSuiteChromosome) int {
	n := 0
	for _, g := range b.goals {
		if suite.FitnessFor(g) == 0 {
			n++
		}
	}
	return n
}

func (b *base) startSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "search."+b.name, trace.WithAttributes(
		attribute.Int("search.population_size", b.params.PopulationSize),
	))
}

// finish closes the span and decides the error returned with result.
func (b *base) finish(ctx context.Context, span trace.Span, result *chromosome.TestSuiteChromosome, covered int) error {
	defer span.End()
	span.SetAttributes(
		attribute.Int("search.iterations", b.iteration),
		attribute.Int("search.covered_goals", covered),
	)
	b.logger.Info("search finished",
		slog.Int("iterations", b.iteration),
		slog.Int("covered_goals", covered),
		slog.Int("tests", result.Size()),
		slog.Int("length", result.Length()),
	)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context canceled")
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// abandon logs a breeding attempt aborted by a failing operator. Such
// failures never end the search.
func (b *base) abandon(err error, stage string) {
	b.logger.Debug("breeding attempt aborted", slog.String("stage", stage), slog.Any("error", err))
}
