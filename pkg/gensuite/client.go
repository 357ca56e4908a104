// Package gensuite is the public entry point for running test generation,
// browsing stored runs and benchmarking algorithms over several seeds.
package gensuite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"gensuite/internal/config"
	"gensuite/internal/generation"
	"gensuite/internal/goal"
	"gensuite/internal/model"
	"gensuite/internal/stats"
	"gensuite/internal/storage"
	"gensuite/internal/subjects"
)

const (
	defaultDBPath     = "gensuite.db"
	defaultExportsDir = "exports"
	defaultRunsLimit  = 20
	defaultWorkers    = 4
)

type Options struct {
	StoreKind string
	DBPath    string
	// ArtifactsDir, when set, receives a directory of JSON and CSV files
	// per run in addition to the store.
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// Registerer enables Prometheus metrics for every run of the client.
	Registerer       prometheus.Registerer
	MetricsNamespace string
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *stats.Metrics

	artifactsDir string
	exportsDir   string

	initOnce sync.Once
	initErr  error
}

type RunRequest struct {
	Config config.Configuration
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Run          model.RunRecord
	Summary      stats.Summary
}

type RunDetail struct {
	Run      model.RunRecord
	Timeline []model.TimelinePoint
	Tests    []model.TestCaseRecord
	Goals    []model.GoalRecord
}

type BenchmarkRequest struct {
	Config config.Configuration
	// Seeds lists the seeds to run. When empty, Runs consecutive seeds
	// starting at Config.Seed are used.
	Seeds   []int64
	Runs    int
	Workers int
}

type BenchmarkResult struct {
	Runs    []model.RunRecord
	Summary stats.BenchmarkSummary
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type SubjectItem struct {
	Name        string
	Description string
	Objects     int
	BranchGoals int
	Lines       int
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		store:        store,
		logger:       logger,
		artifactsDir: opts.ArtifactsDir,
		exportsDir:   exportsDir,
	}
	if opts.Registerer != nil {
		c.metrics = stats.NewMetrics(opts.Registerer, opts.MetricsNamespace)
	}
	return c, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Run generates a suite for req.Config and stores the outcome. An
// interrupted run is still stored and returned with the context error.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	if err := req.Config.Validate(); err != nil {
		return RunSummary{}, err
	}
	run, runErr := c.generate(ctx, req.Config)
	if run == nil {
		return RunSummary{}, runErr
	}
	summary, err := c.persist(context.WithoutCancel(ctx), *run)
	if err != nil {
		return RunSummary{}, err
	}
	return summary, runErr
}

type finishedRun struct {
	record model.RunRecord
	result *generation.Result
}

func (c *Client) generate(ctx context.Context, cfg config.Configuration) (*finishedRun, error) {
	subject, err := subjects.Lookup(cfg.Subject)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	startedAt := time.Now()
	res, err := generation.Run(ctx, cfg, subject, generation.Options{
		Logger:  c.logger.With("run_id", id),
		Metrics: c.metrics,
	})
	if res == nil {
		return nil, err
	}
	return &finishedRun{record: res.Record(id, cfg, startedAt), result: res}, err
}

func (c *Client) persist(ctx context.Context, run finishedRun) (RunSummary, error) {
	id := run.record.ID
	if err := c.store.SaveRun(ctx, run.record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", id, err)
	}
	if err := c.store.SaveTimeline(ctx, id, run.result.Timeline); err != nil {
		return RunSummary{}, fmt.Errorf("save timeline %s: %w", id, err)
	}
	if err := c.store.SaveTestSuite(ctx, id, run.result.Tests); err != nil {
		return RunSummary{}, fmt.Errorf("save tests %s: %w", id, err)
	}
	if err := c.store.SaveGoals(ctx, id, run.result.Goals); err != nil {
		return RunSummary{}, fmt.Errorf("save goals %s: %w", id, err)
	}

	summary := RunSummary{RunID: id, Run: run.record, Summary: run.result.Summary}
	if c.artifactsDir != "" {
		dir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
			Run:      run.record,
			Summary:  run.result.Summary,
			Timeline: run.result.Timeline,
			Tests:    run.result.Tests,
			Goals:    run.result.Goals,
		})
		if err != nil {
			return RunSummary{}, err
		}
		summary.ArtifactsDir = filepath.Clean(dir)
	}
	return summary, nil
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if limit == 0 {
		limit = defaultRunsLimit
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx, limit)
}

// Show loads a stored run with everything attached to it. An empty runID
// selects the latest run.
func (c *Client) Show(ctx context.Context, runID string) (RunDetail, error) {
	if err := c.Init(ctx); err != nil {
		return RunDetail{}, err
	}
	if runID == "" {
		latest, err := c.latestRunID(ctx)
		if err != nil {
			return RunDetail{}, err
		}
		runID = latest
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("run not found: %s", runID)
	}
	detail := RunDetail{Run: run}
	if detail.Timeline, _, err = c.store.GetTimeline(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	if detail.Tests, _, err = c.store.GetTestSuite(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	if detail.Goals, _, err = c.store.GetGoals(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	return detail, nil
}

// Benchmark runs req.Config once per seed, in parallel, and summarises the
// outcomes. Runs are stored in seed order once all of them finished.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkResult, error) {
	seeds := req.Seeds
	if len(seeds) == 0 {
		if req.Runs <= 0 {
			return BenchmarkResult{}, errors.New("benchmark requires seeds or runs > 0")
		}
		for i := 0; i < req.Runs; i++ {
			seeds = append(seeds, req.Config.Seed+int64(i))
		}
	}
	workers := req.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if err := c.Init(ctx); err != nil {
		return BenchmarkResult{}, err
	}
	if err := req.Config.Validate(); err != nil {
		return BenchmarkResult{}, err
	}

	finished := make([]finishedRun, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seed := range seeds {
		cfg := req.Config
		cfg.Seed = seed
		g.Go(func() error {
			run, err := c.generate(gctx, cfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			finished[i] = *run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BenchmarkResult{}, err
	}

	result := BenchmarkResult{Runs: make([]model.RunRecord, 0, len(finished))}
	for _, run := range finished {
		if _, err := c.persist(ctx, run); err != nil {
			return BenchmarkResult{}, err
		}
		result.Runs = append(result.Runs, run.record)
	}
	result.Summary = stats.SummarizeRuns(result.Runs)
	c.logger.Info("benchmark finished",
		"subject", req.Config.Subject,
		"algorithm", req.Config.Search.Algorithm,
		"runs", result.Summary.Runs,
		"coverage_mean", result.Summary.CoverageMean,
		"success_rate", result.Summary.SuccessRate,
	)
	return result, nil
}

// Export copies the artifact directory of a run into req.OutDir.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if c.artifactsDir == "" {
		return ExportSummary{}, errors.New("export requires an artifacts directory")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	if err := c.Init(ctx); err != nil {
		return ExportSummary{}, err
	}

	runID := req.RunID
	if req.Latest {
		latest, err := c.latestRunID(ctx)
		if err != nil {
			return ExportSummary{}, err
		}
		runID = latest
	}
	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

func (c *Client) latestRunID(ctx context.Context) (string, error) {
	runs, err := c.store.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

// Subjects describes the built-in subjects.
func (c *Client) Subjects() []SubjectItem {
	names := subjects.Names()
	out := make([]SubjectItem, 0, len(names))
	for _, name := range names {
		s, err := subjects.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, SubjectItem{
			Name:        s.Name,
			Description: s.Description,
			Objects:     s.Cluster.NumAccessibleObjects(),
			BranchGoals: len(goal.BranchGoals(s.Properties)),
			Lines:       s.Properties.NumLines(),
		})
	}
	return out
}

func (c *Client) Algorithms() []string {
	return generation.ListAlgorithms()
}
