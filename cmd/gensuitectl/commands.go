package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"gensuite/internal/config"
	"gensuite/internal/logging"
	"gensuite/pkg/gensuite"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath   string
	store        string
	dbPath       string
	artifactsDir string
	logLevel     string
	jsonOutput   bool
	metricsFile  string
}

// runFlags override configuration values for run and benchmark.
type runFlags struct {
	subject    string
	algorithm  string
	coverage   string
	seed       int64
	population int
	iterations int
	maxTime    time.Duration
	archive    bool
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "gensuitectl",
		Short:         "Search-based unit test generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "configuration file (yaml or json)")
	pf.StringVar(&g.store, "store", "", "store backend: memory|sqlite (overrides config)")
	pf.StringVar(&g.dbPath, "db-path", "", "sqlite database path (overrides config)")
	pf.StringVar(&g.artifactsDir, "artifacts-dir", "", "write per-run artifact directories here")
	pf.StringVar(&g.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	pf.BoolVar(&g.jsonOutput, "json", false, "print results as JSON")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")

	root.AddCommand(
		newRunCommand(g),
		newBenchmarkCommand(g),
		newRunsCommand(g),
		newShowCommand(g),
		newExportCommand(g),
		newSubjectsCommand(g),
		newAlgorithmsCommand(g),
	)
	return root
}

func bindRunFlags(cmd *cobra.Command, r *runFlags) {
	f := cmd.Flags()
	f.StringVar(&r.subject, "subject", "", "subject under test")
	f.StringVar(&r.algorithm, "algorithm", "", "random|random_test_case|whole_suite|mosa|mio")
	f.StringVar(&r.coverage, "coverage", "", "branch|line")
	f.Int64Var(&r.seed, "seed", 0, "random seed")
	f.IntVar(&r.population, "population", 0, "population size")
	f.IntVar(&r.iterations, "iterations", 0, "maximum search iterations")
	f.DurationVar(&r.maxTime, "max-time", 0, "maximum search time")
	f.BoolVar(&r.archive, "archive", false, "use the coverage archive (whole_suite)")
}

// apply copies every explicitly set flag into cfg.
func (r *runFlags) apply(cmd *cobra.Command, cfg *config.Configuration) {
	f := cmd.Flags()
	if f.Changed("subject") {
		cfg.Subject = r.subject
	}
	if f.Changed("algorithm") {
		cfg.Search.Algorithm = r.algorithm
	}
	if f.Changed("coverage") {
		cfg.Search.Coverage = r.coverage
	}
	if f.Changed("seed") {
		cfg.Seed = r.seed
	}
	if f.Changed("population") {
		cfg.Search.PopulationSize = r.population
	}
	if f.Changed("iterations") {
		cfg.Stopping.MaxIterations = r.iterations
	}
	if f.Changed("max-time") {
		cfg.Stopping.MaxSearchTime = r.maxTime
	}
	if f.Changed("archive") {
		cfg.Search.UseArchive = r.archive
	}
}

// session is a loaded configuration plus the client built from it.
type session struct {
	cfg      config.Configuration
	client   *gensuite.Client
	registry *prometheus.Registry
	flags    *globalFlags
}

func openSession(cmd *cobra.Command, g *globalFlags, r *runFlags) (*session, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if r != nil {
		r.apply(cmd, &cfg)
	}
	if g.store != "" {
		cfg.Storage.Backend = g.store
	}
	if g.dbPath != "" {
		cfg.Storage.Path = g.dbPath
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	opts := gensuite.Options{
		StoreKind:        cfg.Storage.Backend,
		DBPath:           cfg.Storage.Path,
		ArtifactsDir:     g.artifactsDir,
		Logger:           logging.New(logging.Config{Level: level, JSON: cfg.Logging.JSON, Output: cmd.ErrOrStderr(), Service: "gensuitectl"}),
		MetricsNamespace: cfg.Metrics.Namespace,
	}
	s := &session{cfg: cfg, flags: g}
	if cfg.Metrics.Enabled || g.metricsFile != "" {
		s.registry = prometheus.NewRegistry()
		opts.Registerer = s.registry
	}
	client, err := gensuite.New(opts)
	if err != nil {
		return nil, err
	}
	s.client = client
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() error {
	var errs []error
	if s.registry != nil && s.flags.metricsFile != "" {
		errs = append(errs, prometheus.WriteToTextfile(s.flags.metricsFile, s.registry))
	}
	errs = append(errs, s.client.Close())
	return errors.Join(errs...)
}

func withSession(g *globalFlags, r *runFlags, fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession(cmd, g, r)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, s.close())
		}()
		return fn(cmd, args, s)
	}
}

func newRunCommand(g *globalFlags) *cobra.Command {
	r := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a test suite for one subject",
		Args:  cobra.NoArgs,
		RunE: withSession(g, r, func(cmd *cobra.Command, _ []string, s *session) error {
			summary, err := s.client.Run(cmd.Context(), gensuite.RunRequest{Config: s.cfg})
			if summary.RunID == "" {
				return err
			}
			if g.jsonOutput {
				if jsonErr := writeJSON(cmd.OutOrStdout(), summary); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			printRunSummary(cmd.OutOrStdout(), summary)
			return err
		}),
	}
	bindRunFlags(cmd, r)
	return cmd
}

func newBenchmarkCommand(g *globalFlags) *cobra.Command {
	r := &runFlags{}
	var runs, workers int
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run one configuration over consecutive seeds and summarise",
		Args:  cobra.NoArgs,
		RunE: withSession(g, r, func(cmd *cobra.Command, _ []string, s *session) error {
			if runs <= 0 {
				return usageError("benchmark --runs must be > 0")
			}
			result, err := s.client.Benchmark(cmd.Context(), gensuite.BenchmarkRequest{
				Config:  s.cfg,
				Runs:    runs,
				Workers: workers,
			})
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printBenchmark(cmd.OutOrStdout(), s.cfg, result)
			return nil
		}),
	}
	bindRunFlags(cmd, r)
	cmd.Flags().IntVar(&runs, "runs", 5, "number of seeds")
	cmd.Flags().IntVar(&workers, "workers", 4, "runs executed in parallel")
	return cmd
}

func newRunsCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: withSession(g, nil, func(cmd *cobra.Command, _ []string, s *session) error {
			runs, err := s.client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			printRuns(cmd.OutOrStdout(), runs, time.Now())
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func newShowCommand(g *globalFlags) *cobra.Command {
	var showTests bool
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a stored run (latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(g, nil, func(cmd *cobra.Command, args []string, s *session) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			detail, err := s.client.Show(cmd.Context(), id)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), detail)
			}
			printDetail(cmd.OutOrStdout(), detail, showTests)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&showTests, "tests", false, "print the statements of every test case")
	return cmd
}

func newExportCommand(g *globalFlags) *cobra.Command {
	var latest bool
	var out string
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Copy the artifact directory of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(g, nil, func(cmd *cobra.Command, args []string, s *session) error {
			req := gensuite.ExportRequest{Latest: latest, OutDir: out}
			if len(args) == 1 {
				req.RunID = args[0]
			}
			exported, err := s.client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "export the newest run")
	cmd.Flags().StringVar(&out, "out", "", "destination directory")
	return cmd
}

func newSubjectsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List built-in subjects",
		Args:  cobra.NoArgs,
		RunE: withSession(g, nil, func(cmd *cobra.Command, _ []string, s *session) error {
			items := s.client.Subjects()
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			printSubjects(cmd.OutOrStdout(), items)
			return nil
		}),
	}
}

func newAlgorithmsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List search algorithms",
		Args:  cobra.NoArgs,
		RunE: withSession(g, nil, func(cmd *cobra.Command, _ []string, s *session) error {
			names := s.client.Algorithms()
			if g.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	}
}
