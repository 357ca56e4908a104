package gensuite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"gensuite/internal/config"
	"gensuite/internal/logging"
)

func quickConfig(algorithm string) config.Configuration {
	cfg := config.Default()
	cfg.Search.Algorithm = algorithm
	cfg.Search.PopulationSize = 8
	cfg.Stopping.MaxIterations = 4
	cfg.TestCreation.MaxInitialTests = 4
	return cfg
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunRunsAndShow(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	summary, err := client.Run(ctx, RunRequest{Config: quickConfig("mosa")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Run.Algorithm != "mosa" || summary.Run.Subject != "triangle" {
		t.Fatalf("unexpected run record: %+v", summary.Run)
	}
	if summary.ArtifactsDir != "" {
		t.Fatalf("no artifacts dir configured, got %q", summary.ArtifactsDir)
	}

	second, err := client.Run(ctx, RunRequest{Config: quickConfig("mio")})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	runs, err := client.Runs(ctx, 5)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.RunID || runs[1].ID != summary.RunID {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	detail, err := client.Show(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if detail.Run.ID != summary.RunID {
		t.Fatalf("show returned run %s", detail.Run.ID)
	}
	if len(detail.Goals) != detail.Run.TotalGoals {
		t.Fatalf("goals = %d, total = %d", len(detail.Goals), detail.Run.TotalGoals)
	}
	if len(detail.Tests) != detail.Run.Tests {
		t.Fatalf("tests = %d, run says %d", len(detail.Tests), detail.Run.Tests)
	}
	if len(detail.Timeline) != detail.Run.Iterations {
		t.Fatalf("timeline = %d, iterations = %d", len(detail.Timeline), detail.Run.Iterations)
	}

	latest, err := client.Show(ctx, "")
	if err != nil {
		t.Fatalf("show latest: %v", err)
	}
	if latest.Run.ID != second.RunID {
		t.Fatalf("latest = %s, want %s", latest.Run.ID, second.RunID)
	}

	if _, err := client.Show(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing run")
	}
	if _, err := client.Runs(ctx, -1); err == nil {
		t.Fatal("expected error for negative limit")
	}
}

func TestClientRunRejectsInvalidConfig(t *testing.T) {
	client := newTestClient(t, Options{})
	cfg := quickConfig("mosa")
	cfg.Search.CrossoverRate = 2
	if _, err := client.Run(context.Background(), RunRequest{Config: cfg}); err == nil {
		t.Fatal("expected validation error")
	}

	cfg = quickConfig("mosa")
	cfg.Subject = "no-such-subject"
	if _, err := client.Run(context.Background(), RunRequest{Config: cfg}); err == nil {
		t.Fatal("expected unknown subject error")
	}
}

func TestClientArtifactsAndExport(t *testing.T) {
	base := t.TempDir()
	client := newTestClient(t, Options{
		ArtifactsDir: filepath.Join(base, "runs"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	ctx := context.Background()

	summary, err := client.Run(ctx, RunRequest{Config: quickConfig("whole_suite")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.ArtifactsDir == "" {
		t.Fatal("expected artifacts dir")
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported %s, want %s", exported.RunID, summary.RunID)
	}
	for _, name := range []string{"run.json", "summary.json", "timeline.csv", "tests.json", "goals.json"} {
		if _, err := os.Stat(filepath.Join(exported.Directory, name)); err != nil {
			t.Fatalf("expected exported %s: %v", name, err)
		}
	}

	if _, err := client.Export(ctx, ExportRequest{RunID: summary.RunID, Latest: true}); err == nil {
		t.Fatal("expected error for run id with latest")
	}
	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
}

func TestClientBenchmark(t *testing.T) {
	client := newTestClient(t, Options{Registerer: prometheus.NewRegistry()})
	ctx := context.Background()

	result, err := client.Benchmark(ctx, BenchmarkRequest{Config: quickConfig("random_test_case"), Runs: 3, Workers: 2})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if result.Summary.Runs != 3 || len(result.Runs) != 3 {
		t.Fatalf("unexpected benchmark size: %+v", result.Summary)
	}
	for i, run := range result.Runs {
		if run.Seed != int64(1+i) {
			t.Fatalf("run %d seed = %d, want %d", i, run.Seed, 1+i)
		}
	}
	if result.Summary.CoverageMin > result.Summary.CoverageMax {
		t.Fatalf("min > max: %+v", result.Summary)
	}

	stored, err := client.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored runs = %d, want 3", len(stored))
	}

	if _, err := client.Benchmark(ctx, BenchmarkRequest{Config: quickConfig("mosa")}); err == nil {
		t.Fatal("expected error without seeds")
	}
}

func TestClientBenchmarkSameSeedsAgree(t *testing.T) {
	client := newTestClient(t, Options{})
	result, err := client.Benchmark(context.Background(), BenchmarkRequest{
		Config: quickConfig("mio"),
		Seeds:  []int64{7, 7},
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	a, b := result.Runs[0], result.Runs[1]
	if a.FinalCoverage != b.FinalCoverage || a.Tests != b.Tests || a.Length != b.Length {
		t.Fatalf("same seed diverged: %+v vs %+v", a, b)
	}
}

func TestClientSubjectsAndAlgorithms(t *testing.T) {
	client := newTestClient(t, Options{})
	items := client.Subjects()
	if len(items) == 0 {
		t.Fatal("expected built-in subjects")
	}
	for _, item := range items {
		if item.Objects == 0 || item.BranchGoals == 0 {
			t.Fatalf("subject %s has nothing to test: %+v", item.Name, item)
		}
	}
	if len(client.Algorithms()) != 5 {
		t.Fatalf("algorithms = %v", client.Algorithms())
	}
}

func TestClientSQLiteStore(t *testing.T) {
	client := newTestClient(t, Options{StoreKind: "sqlite", DBPath: filepath.Join(t.TempDir(), "gensuite.db")})
	ctx := context.Background()
	summary, err := client.Run(ctx, RunRequest{Config: quickConfig("random")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	detail, err := client.Show(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if detail.Run.ID != summary.RunID || detail.Run.Algorithm != "random" {
		t.Fatalf("unexpected stored run: %+v", detail.Run)
	}
}
