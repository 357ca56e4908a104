package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsOutOfRangeProbability(t *testing.T) {
	cfg := Default()
	cfg.Search.CrossoverRate = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "CrossoverRate")
}

func TestValidatePrimitiveVariation(t *testing.T) {
	cfg := Default()
	cfg.TestCreation.MaxFloatDelta = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Default()
	cfg.TestCreation.RandomPerturbation = 1.2
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "RandomPerturbation")
}

func TestValidateCrossFieldRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Configuration)
		want   string
	}{
		{"elite", func(c *Configuration) { c.Search.Elite = c.Search.PopulationSize + 1 }, "search.elite"},
		{"initial tests", func(c *Configuration) { c.TestCreation.MinInitialTests = 20 }, "min_initial_tests"},
		{"timeout", func(c *Configuration) { c.Execution.Timeout = 0 }, "execution.timeout"},
		{"no stopping", func(c *Configuration) { c.Stopping = StoppingConfig{} }, "stopping condition"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateUnknownAlgorithm(t *testing.T) {
	cfg := Default()
	cfg.Search.Algorithm = "hill_climbing"
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestSQLiteNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "sqlite"
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)
	cfg.Storage.Path = filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gensuite.yaml")
	body := `
subject: stack
search:
  algorithm: mio
  population_size: 20
stopping:
  max_iterations: 0
  max_search_time: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "stack", cfg.Subject)
	assert.Equal(t, "mio", cfg.Search.Algorithm)
	assert.Equal(t, 20, cfg.Search.PopulationSize)
	assert.Equal(t, 3*time.Second, cfg.Stopping.MaxSearchTime)
	assert.Equal(t, 0, cfg.Stopping.MaxIterations)
	assert.Equal(t, 0.75, cfg.Search.CrossoverRate, "unset fields keep defaults")
}

func TestLoadJSONFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gensuite.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"subject":"matcher","seed":7}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "matcher", cfg.Subject)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gensuite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subject: stack\nsearch:\n  algorithm: mosa\n"), 0o644))
	t.Setenv("GENSUITE_ALGORITHM", "whole_suite")
	t.Setenv("GENSUITE_SEED", "42")
	t.Setenv("GENSUITE_MAX_SEARCH_TIME", "250ms")
	t.Setenv("GENSUITE_USE_ARCHIVE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "stack", cfg.Subject)
	assert.Equal(t, "whole_suite", cfg.Search.Algorithm)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Stopping.MaxSearchTime)
	assert.True(t, cfg.Search.UseArchive)
}

func TestEnvBadValue(t *testing.T) {
	t.Setenv("GENSUITE_POPULATION_SIZE", "many")
	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "GENSUITE_POPULATION_SIZE")
}
