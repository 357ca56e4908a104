// Package generation turns a configuration and a subject into a ready to run
// search, and runs it.
package generation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"gensuite/internal/chromosome"
	"gensuite/internal/config"
	"gensuite/internal/execution"
	"gensuite/internal/fitness"
	"gensuite/internal/goal"
	"gensuite/internal/search"
	"gensuite/internal/selection"
	"gensuite/internal/stats"
	"gensuite/internal/stopping"
	"gensuite/internal/subjects"
	"gensuite/internal/testcase"
)

// ErrNoObjectsUnderTest means the subject exposes nothing to call. It is
// fatal to the run.
var ErrNoObjectsUnderTest = errors.New("no objects under test")

type Options struct {
	Logger *slog.Logger
	// Metrics, when set, receives a per-run observer.
	Metrics   *stats.Metrics
	Observers []search.Observer
}

// Environment is everything Build wired together for one run.
type Environment struct {
	Config     config.Configuration
	Subject    *subjects.Subject
	Algorithm  search.Algorithm
	Goals      []*fitness.GoalFitness
	Conditions []stopping.Condition
	Collector  *stats.Collector
	Counter    *stats.ExecutionCounter

	runner *fitness.Runner
	logger *slog.Logger
}

// Build assembles executor, goals, fitness functions, factories, stopping
// conditions and observers, and constructs the configured algorithm.
func Build(cfg config.Configuration, subject *subjects.Subject, opts Options) (*Environment, error) {
	if subject == nil || subject.Cluster == nil || subject.Cluster.NumAccessibleObjects() == 0 {
		return nil, ErrNoObjectsUnderTest
	}
	build, err := ResolveAlgorithm(cfg.Search.Algorithm)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("subject", subject.Name)

	executor, err := execution.NewExecutor(execution.Config{Timeout: cfg.Execution.Timeout, Logger: logger})
	if err != nil {
		return nil, err
	}
	counter := &stats.ExecutionCounter{}
	executor.AddObserver(counter)
	conditions := Conditions(cfg.Stopping)
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: no stopping condition configured", config.ErrInvalid)
	}
	for _, c := range conditions {
		if o, ok := c.(execution.Observer); ok {
			executor.AddObserver(o)
		}
	}

	runner := fitness.NewRunner(executor)
	exclusions := goal.NewExclusions()
	var (
		goals         []goal.Goal
		suiteFitness  chromosome.FitnessFunction
		suiteCoverage chromosome.CoverageFunction
	)
	switch cfg.Search.Coverage {
	case "line":
		goals = goal.LineGoals(subject.Properties)
		suiteFitness = fitness.NewLineSuite(subject.Properties, runner, exclusions)
		suiteCoverage = fitness.NewLineCoverage(subject.Properties, runner)
	case "branch", "":
		goals = goal.BranchGoals(subject.Properties)
		suiteFitness = fitness.NewBranchDistanceSuite(subject.Properties, runner, exclusions)
		suiteCoverage = fitness.NewBranchCoverage(subject.Properties, runner)
	default:
		return nil, fmt.Errorf("%w: unknown coverage %q", config.ErrInvalid, cfg.Search.Coverage)
	}
	goalFunctions := fitness.GoalFitnessFunctions(goals, subject.Properties, runner)
	caseFitness := fitness.AsFitnessFunctions(goalFunctions)
	coverage := []chromosome.CoverageFunction{suiteCoverage}

	tc := cfg.TestCreation
	testFactory, err := testcase.NewFactory(subject.Cluster, factoryConfig(tc))
	if err != nil {
		return nil, err
	}
	chromosomeOpts := chromosomeOptions(tc)
	cases, err := testcase.NewRandomLengthFactory(testFactory, chromosomeOpts.ChromosomeLength, 0)
	if err != nil {
		return nil, err
	}
	caseFactory, err := chromosome.NewTestCaseFactory(cases, testFactory, &chromosomeOpts, caseFitness, coverage)
	if err != nil {
		return nil, err
	}
	suiteFactory, err := chromosome.NewTestSuiteFactory(caseFactory, &chromosomeOpts, tc.MinInitialTests, tc.MaxInitialTests,
		[]chromosome.FitnessFunction{suiteFitness}, coverage)
	if err != nil {
		return nil, err
	}

	caseSelection, err := selection.ByName[*chromosome.TestCaseChromosome](cfg.Search.Selection, cfg.Search.TournamentSize, cfg.Search.RankBias)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	suiteSelection, err := selection.ByName[*chromosome.TestSuiteChromosome](cfg.Search.Selection, cfg.Search.TournamentSize, cfg.Search.RankBias)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	collector := stats.NewCollector()
	observers := []search.Observer{collector}
	if opts.Metrics != nil {
		observers = append(observers, opts.Metrics.ForRun(cfg.Search.Algorithm, subject.Name))
	}
	observers = append(observers, opts.Observers...)

	algorithm, err := build(search.Config{
		Logger:           logger,
		Rand:             rand.New(rand.NewSource(cfg.Seed)),
		Conditions:       conditions,
		Observers:        observers,
		Params:           searchParams(cfg),
		TestCaseFactory:  caseFactory,
		TestSuiteFactory: suiteFactory,
		Goals:            caseFitness,
		SuiteFitness:     []chromosome.FitnessFunction{suiteFitness},
		SuiteCoverage:    coverage,
		Exclusions:       exclusions,
		CaseSelection:    caseSelection,
		SuiteSelection:   suiteSelection,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", cfg.Search.Algorithm, err)
	}

	return &Environment{
		Config:     cfg,
		Subject:    subject,
		Algorithm:  algorithm,
		Goals:      goalFunctions,
		Conditions: conditions,
		Collector:  collector,
		Counter:    counter,
		runner:     runner,
		logger:     logger,
	}, nil
}

// Conditions creates one stopping condition per enabled budget.
func Conditions(cfg config.StoppingConfig) []stopping.Condition {
	var out []stopping.Condition
	if cfg.MaxIterations > 0 {
		out = append(out, stopping.NewMaxIterations(cfg.MaxIterations))
	}
	if cfg.MaxSearchTime > 0 {
		out = append(out, stopping.NewMaxSearchTime(cfg.MaxSearchTime))
	}
	if cfg.MaxTestExecutions > 0 {
		out = append(out, stopping.NewMaxTestExecutions(cfg.MaxTestExecutions))
	}
	if cfg.MaxStatementExecutions > 0 {
		out = append(out, stopping.NewMaxStatementExecutions(cfg.MaxStatementExecutions))
	}
	if cfg.MaxCoverage > 0 {
		out = append(out, stopping.NewMaxCoverage(cfg.MaxCoverage))
	}
	if cfg.PlateauIterations > 0 {
		out = append(out, stopping.NewMinimumCoveragePlateau(cfg.MinimumCoverage, cfg.PlateauIterations))
	}
	return out
}

func factoryConfig(tc config.TestCreationConfig) testcase.FactoryConfig {
	return testcase.FactoryConfig{
		InsertionUUT:              tc.InsertionUUT,
		MaxRecursion:              tc.MaxRecursion,
		PrimitiveReuseProbability: tc.PrimitiveReuseProbability,
		ObjectReuseProbability:    tc.ObjectReuseProbability,
		StringLength:              tc.StringLength,
		MaxInt:                    tc.MaxInt,
		MaxDelta:                  tc.MaxDelta,
		MaxFloatDelta:             tc.MaxFloatDelta,
		RandomPerturbation:        tc.RandomPerturbation,
	}
}

func chromosomeOptions(tc config.TestCreationConfig) chromosome.Options {
	return chromosome.Options{
		TestDeleteProbability:         tc.TestDeleteProbability,
		TestChangeProbability:         tc.TestChangeProbability,
		TestInsertProbability:         tc.TestInsertProbability,
		StatementInsertionProbability: tc.StatementInsertionProbability,
		ChromosomeLength:              tc.ChromosomeLength,
		TestInsertionProbability:      tc.SuiteInsertionProbability,
		MaxSize:                       tc.MaxSize,
	}
}

func searchParams(cfg config.Configuration) search.Params {
	phase := func(p config.MIOPhaseConfig) search.MIOPhase {
		return search.MIOPhase{
			RandomTestOrFromArchive: p.RandomTestOrFromArchive,
			TestsPerTarget:          p.TestsPerTarget,
			Mutations:               p.Mutations,
		}
	}
	return search.Params{
		PopulationSize:           cfg.Search.PopulationSize,
		Elite:                    cfg.Search.Elite,
		CrossoverRate:            cfg.Search.CrossoverRate,
		TestInsertionProbability: cfg.Search.TestInsertionProbability,
		UseArchive:               cfg.Search.UseArchive,
		Distance:                 search.Distance(cfg.Search.MOSADistance),
		MIO: search.MIOParams{
			Initial:              phase(cfg.MIO.Initial),
			Focused:              phase(cfg.MIO.Focused),
			ExploitationStartsAt: cfg.MIO.ExploitationStartsAt,
		},
	}
}
