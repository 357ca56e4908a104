package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gensuite/internal/config"
	"gensuite/internal/instrumentation"
	"gensuite/internal/logging"
	"gensuite/internal/stats"
	"gensuite/internal/storage"
	"gensuite/internal/subjects"
	"gensuite/internal/testcase"
)

func smallConfig(algorithm string) config.Configuration {
	cfg := config.Default()
	cfg.Search.Algorithm = algorithm
	cfg.Search.PopulationSize = 8
	cfg.Stopping.MaxIterations = 5
	cfg.TestCreation.MaxInitialTests = 4
	return cfg
}

func triangle(t *testing.T) *subjects.Subject {
	t.Helper()
	s, err := subjects.Lookup("triangle")
	require.NoError(t, err)
	return s
}

func TestRunEveryAlgorithm(t *testing.T) {
	for _, name := range ListAlgorithms() {
		t.Run(name, func(t *testing.T) {
			res, err := Run(context.Background(), smallConfig(name), triangle(t), Options{Logger: logging.Discard()})
			require.NoError(t, err)
			require.NotNil(t, res.Suite)

			assert.False(t, res.Interrupted)
			assert.Greater(t, res.TotalGoals, 0)
			assert.Len(t, res.Goals, res.TotalGoals)
			assert.LessOrEqual(t, res.CoveredGoals, res.TotalGoals)
			assert.Len(t, res.Tests, res.Suite.Size())
			assert.Greater(t, res.TestExecutions, 0)
			for i, tc := range res.Tests {
				assert.Equal(t, i, tc.Index)
				assert.Equal(t, storage.Versioned(), tc.VersionedRecord)
			}
		})
	}
}

func TestRunIsReproducible(t *testing.T) {
	first, err := Run(context.Background(), smallConfig("mosa"), triangle(t), Options{Logger: logging.Discard()})
	require.NoError(t, err)
	second, err := Run(context.Background(), smallConfig("mosa"), triangle(t), Options{Logger: logging.Discard()})
	require.NoError(t, err)

	assert.Equal(t, first.Coverage, second.Coverage)
	assert.Equal(t, first.Goals, second.Goals)
	assert.Equal(t, first.Tests, second.Tests)
}

func TestBuildLineCoverage(t *testing.T) {
	cfg := smallConfig("whole_suite")
	cfg.Search.Coverage = "line"
	s := triangle(t)
	env, err := Build(cfg, s, Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Len(t, env.Goals, len(s.Properties.Lines()))
	for _, g := range env.Goals {
		assert.Equal(t, "line", g.Goal().Kind.String())
	}
}

func TestBuildRejectsEmptySubject(t *testing.T) {
	empty := &subjects.Subject{
		Name:       "empty",
		Properties: instrumentation.NewSubjectProperties(),
		Cluster:    testcase.NewCluster(),
	}
	_, err := Build(smallConfig("mosa"), empty, Options{Logger: logging.Discard()})
	if !errors.Is(err, ErrNoObjectsUnderTest) {
		t.Fatalf("err = %v, want ErrNoObjectsUnderTest", err)
	}
}

func TestBuildRejectsMisconfiguration(t *testing.T) {
	cases := map[string]func(*config.Configuration){
		"unknown algorithm": func(c *config.Configuration) { c.Search.Algorithm = "hill_climbing" },
		"unknown coverage":  func(c *config.Configuration) { c.Search.Coverage = "path" },
		"no stopping":       func(c *config.Configuration) { c.Stopping = config.StoppingConfig{} },
		"unknown selection": func(c *config.Configuration) { c.Search.Selection = "roulette" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := smallConfig("mosa")
			mutate(&cfg)
			_, err := Build(cfg, triangle(t), Options{Logger: logging.Discard()})
			require.Error(t, err)
		})
	}
}

func TestConditionsFollowBudgets(t *testing.T) {
	got := Conditions(config.StoppingConfig{
		MaxIterations:     3,
		MaxTestExecutions: 100,
		MaxCoverage:       90,
		MinimumCoverage:   50,
		PlateauIterations: 4,
	})
	assert.Len(t, got, 4)
	assert.Empty(t, Conditions(config.StoppingConfig{}))
}

func TestFactoryConfigFollowsTestCreation(t *testing.T) {
	tc := config.Default().TestCreation
	assert.Equal(t, testcase.DefaultFactoryConfig(), factoryConfig(tc))

	tc.MaxFloatDelta = 0.5
	tc.RandomPerturbation = 0
	got := factoryConfig(tc)
	assert.Equal(t, 0.5, got.MaxFloatDelta)
	assert.Equal(t, 0.0, got.RandomPerturbation)
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, smallConfig("mio"), triangle(t), Options{Logger: logging.Discard()})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Interrupted)

	rec := res.Record("run-1", smallConfig("mio"), time.Now())
	assert.True(t, rec.Interrupted)
}

func TestRunReportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := stats.NewMetrics(reg, "gensuite")
	res, err := Run(context.Background(), smallConfig("random_test_case"), triangle(t), Options{
		Logger:  logging.Discard(),
		Metrics: metrics,
	})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "gensuite_search_iterations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "gensuite_search_iterations_total" {
			continue
		}
		assert.Equal(t, float64(res.Iterations), mf.GetMetric()[0].GetCounter().GetValue())
	}
}
