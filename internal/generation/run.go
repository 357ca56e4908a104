package generation

import (
	"context"
	"time"

	"gensuite/internal/chromosome"
	"gensuite/internal/config"
	"gensuite/internal/model"
	"gensuite/internal/stats"
	"gensuite/internal/storage"
	"gensuite/internal/subjects"
)

// Result is the outcome of one run. It is produced even when the run was
// interrupted.
type Result struct {
	Suite               *chromosome.TestSuiteChromosome
	Coverage            float64
	Fitness             float64
	CoveredGoals        int
	TotalGoals          int
	Iterations          int
	Duration            time.Duration
	TestExecutions      int
	StatementExecutions int
	Interrupted         bool

	Timeline []model.TimelinePoint
	Summary  stats.Summary
	Goals    []model.GoalRecord
	Tests    []model.TestCaseRecord
}

// Run builds the environment for cfg and runs it to completion.
func Run(ctx context.Context, cfg config.Configuration, subject *subjects.Subject, opts Options) (*Result, error) {
	env, err := Build(cfg, subject, opts)
	if err != nil {
		return nil, err
	}
	return env.Run(ctx)
}

// Run executes the search. When ctx ends early the partial result is
// returned together with ctx's error.
func (e *Environment) Run(ctx context.Context) (*Result, error) {
	e.runner.Bind(ctx)
	suite, err := e.Algorithm.Generate(ctx)
	// Reporting re-executes stale members even after ctx ended.
	e.runner.Bind(context.WithoutCancel(ctx))
	res := &Result{
		Suite:               suite,
		TotalGoals:          len(e.Goals),
		Iterations:          e.Collector.Iterations(),
		Duration:            e.Collector.Duration(),
		TestExecutions:      e.Counter.Tests(),
		StatementExecutions: e.Counter.Statements(),
		Interrupted:         err != nil,
		Timeline:            e.Collector.Timeline(),
		Summary:             e.Collector.Summary(),
	}
	if suite == nil {
		return res, err
	}
	res.Coverage = suite.Coverage()
	res.Fitness = suite.Fitness()
	res.Goals = make([]model.GoalRecord, len(e.Goals))
	for i, g := range e.Goals {
		f := suite.FitnessFor(g)
		res.Goals[i] = model.GoalRecord{
			Goal:    g.String(),
			Kind:    g.Goal().Kind.String(),
			Covered: f == 0,
			Fitness: f,
		}
		if f == 0 {
			res.CoveredGoals++
		}
	}
	tests := suite.Tests()
	res.Tests = make([]model.TestCaseRecord, len(tests))
	for i, t := range tests {
		res.Tests[i] = model.TestCaseRecord{
			VersionedRecord: storage.Versioned(),
			Index:           i,
			Hash:            t.Hash(),
			Statements:      t.TestCase().Lines(),
		}
	}
	e.logger.Info("generation finished",
		"algorithm", e.Algorithm.Name(),
		"coverage", res.Coverage,
		"covered_goals", res.CoveredGoals,
		"total_goals", res.TotalGoals,
		"tests", len(res.Tests),
		"interrupted", res.Interrupted,
	)
	return res, err
}

// Record summarises res as a storable run.
func (r *Result) Record(id string, cfg config.Configuration, startedAt time.Time) model.RunRecord {
	rec := model.RunRecord{
		VersionedRecord:     storage.Versioned(),
		ID:                  id,
		Subject:             cfg.Subject,
		Algorithm:           cfg.Search.Algorithm,
		Coverage:            cfg.Search.Coverage,
		Seed:                cfg.Seed,
		StartedAt:           startedAt.UTC(),
		DurationMillis:      r.Duration.Milliseconds(),
		Iterations:          r.Iterations,
		FinalCoverage:       r.Coverage,
		FinalFitness:        r.Fitness,
		CoveredGoals:        r.CoveredGoals,
		TotalGoals:          r.TotalGoals,
		TestExecutions:      r.TestExecutions,
		StatementExecutions: r.StatementExecutions,
		Interrupted:         r.Interrupted,
	}
	if r.Suite != nil {
		rec.Tests = r.Suite.Size()
		rec.Length = r.Suite.Length()
	}
	return rec
}
