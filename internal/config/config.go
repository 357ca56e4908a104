// Package config holds the run configuration: defaults, a YAML (or JSON)
// file, GENSUITE_* environment overrides and validation, applied in that
// order by Load.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

type Configuration struct {
	Subject      string             `json:"subject" yaml:"subject" validate:"required"`
	Seed         int64              `json:"seed" yaml:"seed"`
	Search       SearchConfig       `json:"search" yaml:"search"`
	MIO          MIOConfig          `json:"mio" yaml:"mio"`
	Stopping     StoppingConfig     `json:"stopping" yaml:"stopping"`
	TestCreation TestCreationConfig `json:"test_creation" yaml:"test_creation"`
	Execution    ExecutionConfig    `json:"execution" yaml:"execution"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Storage      StorageConfig      `json:"storage" yaml:"storage"`
	Metrics      MetricsConfig      `json:"metrics" yaml:"metrics"`
}

type SearchConfig struct {
	Algorithm                string  `json:"algorithm" yaml:"algorithm" validate:"oneof=random random_test_case whole_suite mosa mio"`
	Coverage                 string  `json:"coverage" yaml:"coverage" validate:"oneof=branch line"`
	PopulationSize           int     `json:"population_size" yaml:"population_size" validate:"min=1"`
	Elite                    int     `json:"elite" yaml:"elite" validate:"min=0"`
	CrossoverRate            float64 `json:"crossover_rate" yaml:"crossover_rate" validate:"min=0,max=1"`
	TestInsertionProbability float64 `json:"test_insertion_probability" yaml:"test_insertion_probability" validate:"min=0,max=1"`
	Selection                string  `json:"selection" yaml:"selection" validate:"oneof=tournament rank random"`
	TournamentSize           int     `json:"tournament_size" yaml:"tournament_size" validate:"min=1"`
	RankBias                 float64 `json:"rank_bias" yaml:"rank_bias" validate:"gt=1,max=2"`
	UseArchive               bool    `json:"use_archive" yaml:"use_archive"`
	MOSADistance             string  `json:"mosa_distance" yaml:"mosa_distance" validate:"oneof=crowding epsilon"`
}

type MIOPhaseConfig struct {
	RandomTestOrFromArchive float64 `json:"random_test_or_from_archive" yaml:"random_test_or_from_archive" validate:"min=0,max=1"`
	TestsPerTarget          int     `json:"tests_per_target" yaml:"tests_per_target" validate:"min=1"`
	Mutations               int     `json:"mutations" yaml:"mutations" validate:"min=1"`
}

type MIOConfig struct {
	Initial              MIOPhaseConfig `json:"initial" yaml:"initial"`
	Focused              MIOPhaseConfig `json:"focused" yaml:"focused"`
	ExploitationStartsAt float64        `json:"exploitation_starts_at" yaml:"exploitation_starts_at" validate:"min=0,max=1"`
}

// StoppingConfig enables a stopping condition for every positive field.
type StoppingConfig struct {
	MaxIterations          int           `json:"max_iterations" yaml:"max_iterations" validate:"min=0"`
	MaxSearchTime          time.Duration `json:"max_search_time" yaml:"max_search_time"`
	MaxTestExecutions      int           `json:"max_test_executions" yaml:"max_test_executions" validate:"min=0"`
	MaxStatementExecutions int           `json:"max_statement_executions" yaml:"max_statement_executions" validate:"min=0"`
	MaxCoverage            int           `json:"max_coverage" yaml:"max_coverage" validate:"min=0,max=100"`
	MinimumCoverage        int           `json:"minimum_coverage" yaml:"minimum_coverage" validate:"min=0,max=100"`
	PlateauIterations      int           `json:"plateau_iterations" yaml:"plateau_iterations" validate:"min=0"`
}

type TestCreationConfig struct {
	ChromosomeLength              int     `json:"chromosome_length" yaml:"chromosome_length" validate:"min=1"`
	MaxSize                       int     `json:"max_size" yaml:"max_size" validate:"min=1"`
	MinInitialTests               int     `json:"min_initial_tests" yaml:"min_initial_tests" validate:"min=0"`
	MaxInitialTests               int     `json:"max_initial_tests" yaml:"max_initial_tests" validate:"min=1"`
	TestDeleteProbability         float64 `json:"test_delete_probability" yaml:"test_delete_probability" validate:"min=0,max=1"`
	TestChangeProbability         float64 `json:"test_change_probability" yaml:"test_change_probability" validate:"min=0,max=1"`
	TestInsertProbability         float64 `json:"test_insert_probability" yaml:"test_insert_probability" validate:"min=0,max=1"`
	StatementInsertionProbability float64 `json:"statement_insertion_probability" yaml:"statement_insertion_probability" validate:"min=0,max=1"`
	SuiteInsertionProbability     float64 `json:"suite_insertion_probability" yaml:"suite_insertion_probability" validate:"min=0,max=1"`
	InsertionUUT                  float64 `json:"insertion_uut" yaml:"insertion_uut" validate:"min=0,max=1"`
	PrimitiveReuseProbability     float64 `json:"primitive_reuse_probability" yaml:"primitive_reuse_probability" validate:"min=0,max=1"`
	ObjectReuseProbability        float64 `json:"object_reuse_probability" yaml:"object_reuse_probability" validate:"min=0,max=1"`
	MaxRecursion                  int     `json:"max_recursion" yaml:"max_recursion" validate:"min=1"`
	StringLength                  int     `json:"string_length" yaml:"string_length" validate:"min=1"`
	MaxInt                        int     `json:"max_int" yaml:"max_int" validate:"min=1"`
	MaxDelta                      int     `json:"max_delta" yaml:"max_delta" validate:"min=1"`
	MaxFloatDelta                 float64 `json:"max_float_delta" yaml:"max_float_delta" validate:"gt=0"`
	RandomPerturbation            float64 `json:"random_perturbation" yaml:"random_perturbation" validate:"min=0,max=1"`
}

type ExecutionConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `json:"json" yaml:"json"`
}

type StorageConfig struct {
	Backend string `json:"backend" yaml:"backend" validate:"oneof=memory sqlite"`
	Path    string `json:"path" yaml:"path" validate:"required_if=Backend sqlite"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

func Default() Configuration {
	return Configuration{
		Subject: "triangle",
		Seed:    1,
		Search: SearchConfig{
			Algorithm:                "mosa",
			Coverage:                 "branch",
			PopulationSize:           50,
			Elite:                    1,
			CrossoverRate:            0.75,
			TestInsertionProbability: 0.1,
			Selection:                "tournament",
			TournamentSize:           5,
			RankBias:                 1.68,
			UseArchive:               false,
			MOSADistance:             "crowding",
		},
		MIO: MIOConfig{
			Initial:              MIOPhaseConfig{RandomTestOrFromArchive: 0.5, TestsPerTarget: 10, Mutations: 1},
			Focused:              MIOPhaseConfig{RandomTestOrFromArchive: 0, TestsPerTarget: 1, Mutations: 10},
			ExploitationStartsAt: 0.5,
		},
		Stopping: StoppingConfig{
			MaxIterations: 100,
			MaxSearchTime: 10 * time.Second,
		},
		TestCreation: TestCreationConfig{
			ChromosomeLength:              40,
			MaxSize:                       100,
			MinInitialTests:               1,
			MaxInitialTests:               10,
			TestDeleteProbability:         1.0 / 3.0,
			TestChangeProbability:         1.0 / 3.0,
			TestInsertProbability:         1.0 / 3.0,
			StatementInsertionProbability: 0.5,
			SuiteInsertionProbability:     0.1,
			InsertionUUT:                  0.5,
			PrimitiveReuseProbability:     0.5,
			ObjectReuseProbability:        0.9,
			MaxRecursion:                  10,
			StringLength:                  20,
			MaxInt:                        256,
			MaxDelta:                      20,
			MaxFloatDelta:                 20,
			RandomPerturbation:            0.2,
		},
		Execution: ExecutionConfig{Timeout: time.Second},
		Logging:   LoggingConfig{Level: "info"},
		Storage:   StorageConfig{Backend: "memory"},
		Metrics:   MetricsConfig{Namespace: "gensuite"},
	}
}

// Load applies defaults, then the file at path (a missing file is not an
// error), then environment overrides, then validates.
func Load(path string) (Configuration, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

// applyEnv reads GENSUITE_* overrides through getenv.
func applyEnv(cfg *Configuration, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	str("GENSUITE_SUBJECT", &cfg.Subject)
	if v := getenv("GENSUITE_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GENSUITE_SEED: %w", err))
		} else {
			cfg.Seed = seed
		}
	}
	str("GENSUITE_ALGORITHM", &cfg.Search.Algorithm)
	str("GENSUITE_COVERAGE", &cfg.Search.Coverage)
	integer("GENSUITE_POPULATION_SIZE", &cfg.Search.PopulationSize)
	boolean("GENSUITE_USE_ARCHIVE", &cfg.Search.UseArchive)
	integer("GENSUITE_MAX_ITERATIONS", &cfg.Stopping.MaxIterations)
	if v := getenv("GENSUITE_MAX_SEARCH_TIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GENSUITE_MAX_SEARCH_TIME: %w", err))
		} else {
			cfg.Stopping.MaxSearchTime = d
		}
	}
	integer("GENSUITE_MAX_TEST_EXECUTIONS", &cfg.Stopping.MaxTestExecutions)
	str("GENSUITE_LOG_LEVEL", &cfg.Logging.Level)
	boolean("GENSUITE_LOG_JSON", &cfg.Logging.JSON)
	str("GENSUITE_STORAGE_BACKEND", &cfg.Storage.Backend)
	str("GENSUITE_STORAGE_PATH", &cfg.Storage.Path)
	boolean("GENSUITE_METRICS_ENABLED", &cfg.Metrics.Enabled)
	if len(errs) > 0 {
		return fmt.Errorf("%w: environment: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges and the rules that span fields.
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	var problems []string
	if c.Search.Elite > c.Search.PopulationSize {
		problems = append(problems, "search.elite must be <= search.population_size")
	}
	if c.TestCreation.MinInitialTests > c.TestCreation.MaxInitialTests {
		problems = append(problems, "test_creation.min_initial_tests must be <= test_creation.max_initial_tests")
	}
	if c.Execution.Timeout <= 0 {
		problems = append(problems, "execution.timeout must be > 0")
	}
	if c.Stopping.MaxSearchTime < 0 {
		problems = append(problems, "stopping.max_search_time must be >= 0")
	}
	if !c.Stopping.any() {
		problems = append(problems, "at least one stopping condition is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func (s StoppingConfig) any() bool {
	return s.MaxIterations > 0 || s.MaxSearchTime > 0 || s.MaxTestExecutions > 0 ||
		s.MaxStatementExecutions > 0 || s.MaxCoverage > 0 || s.PlateauIterations > 0
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), rule))
	}
	return strings.Join(parts, "; ")
}
