package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gensuite/internal/model"
)

// BenchmarkSummary aggregates repeated runs of one configuration.
type BenchmarkSummary struct {
	Runs               int     `json:"runs"`
	FullCoverageRuns   int     `json:"full_coverage_runs"`
	SuccessRate        float64 `json:"success_rate"`
	CoverageMean       float64 `json:"coverage_mean"`
	CoverageStd        float64 `json:"coverage_std"`
	CoverageMin        float64 `json:"coverage_min"`
	CoverageMax        float64 `json:"coverage_max"`
	IterationsMean     float64 `json:"iterations_mean"`
	DurationMeanMillis float64 `json:"duration_mean_ms"`
	TestsMean          float64 `json:"tests_mean"`
}

// SummarizeRuns counts a run as successful when it covered every goal.
func SummarizeRuns(runs []model.RunRecord) BenchmarkSummary {
	summary := BenchmarkSummary{Runs: len(runs)}
	if len(runs) == 0 {
		return summary
	}
	coverage := make([]float64, len(runs))
	iterations := make([]float64, len(runs))
	durations := make([]float64, len(runs))
	tests := make([]float64, len(runs))
	for i, run := range runs {
		coverage[i] = run.FinalCoverage
		iterations[i] = float64(run.Iterations)
		durations[i] = float64(run.DurationMillis)
		tests[i] = float64(run.Tests)
		if run.TotalGoals > 0 && run.CoveredGoals == run.TotalGoals {
			summary.FullCoverageRuns++
		}
	}
	summary.SuccessRate = float64(summary.FullCoverageRuns) / float64(len(runs))
	summary.CoverageMean = stat.Mean(coverage, nil)
	if len(runs) > 1 {
		summary.CoverageStd = stat.StdDev(coverage, nil)
	}
	summary.CoverageMin, summary.CoverageMax = floats.Min(coverage), floats.Max(coverage)
	summary.IterationsMean = stat.Mean(iterations, nil)
	summary.DurationMeanMillis = stat.Mean(durations, nil)
	summary.TestsMean = stat.Mean(tests, nil)
	return summary
}
