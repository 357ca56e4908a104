package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gensuite/internal/model"
	"gensuite/pkg/gensuite"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--store", "sqlite", "--db-path", filepath.Join(t.TempDir(), "gensuite.db"), "--log-level", "error"}
}

var quickRun = []string{"--population", "6", "--iterations", "3"}

func TestRunThenListAndShow(t *testing.T) {
	base := sqliteArgs(t)

	out, err := execute(t, append(append([]string{"run"}, quickRun...), append(base, "--json")...)...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary gensuite.RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if summary.RunID == "" || summary.Run.Subject != "triangle" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	out, err = execute(t, append([]string{"runs", "--json"}, base...)...)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var runs []model.RunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs output: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	out, err = execute(t, append([]string{"show", summary.RunID, "--tests"}, base...)...)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "run_id="+summary.RunID) || !strings.Contains(out, "# test 0") {
		t.Fatalf("unexpected show output:\n%s", out)
	}
}

func TestRunFlagsOverrideConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "gensuite.yaml")
	file := "subject: stack\nsearch:\n  algorithm: whole_suite\n  population_size: 6\nstopping:\n  max_iterations: 2\n"
	if err := os.WriteFile(cfgPath, []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "run", "--config", cfgPath, "--algorithm", "random", "--log-level", "error")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "subject=stack") || !strings.Contains(out, "algorithm=random") {
		t.Fatalf("expected file subject and flag algorithm:\n%s", out)
	}
}

func TestBenchmarkOutput(t *testing.T) {
	out, err := execute(t, append([]string{"benchmark", "--runs", "2", "--algorithm", "random_test_case"}, quickRun...)...)
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if !strings.Contains(out, "runs=2") || !strings.Contains(out, "coverage mean=") {
		t.Fatalf("unexpected benchmark output:\n%s", out)
	}

	if _, err := execute(t, "benchmark", "--runs", "0"); err == nil {
		t.Fatal("expected error for zero runs")
	}
}

func TestMetricsFileWritten(t *testing.T) {
	metrics := filepath.Join(t.TempDir(), "gensuite.prom")
	if _, err := execute(t, append([]string{"run", "--metrics-file", metrics, "--log-level", "error"}, quickRun...)...); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "gensuite_search_runs_total") {
		t.Fatalf("metrics file lacks runs counter:\n%s", data)
	}
}

func TestSubjectsAndAlgorithms(t *testing.T) {
	out, err := execute(t, "subjects")
	if err != nil {
		t.Fatalf("subjects: %v", err)
	}
	for _, name := range []string{"triangle", "stack", "matcher"} {
		if !strings.Contains(out, name) {
			t.Fatalf("subjects output lacks %s:\n%s", name, out)
		}
	}

	out, err = execute(t, "algorithms")
	if err != nil {
		t.Fatalf("algorithms: %v", err)
	}
	if got := strings.Fields(out); len(got) != 5 {
		t.Fatalf("algorithms = %v", got)
	}
}

func TestInvalidInput(t *testing.T) {
	cases := [][]string{
		{"run", "--algorithm", "annealing"},
		{"run", "--subject", "missing"},
		{"run", "--population", "-1"},
		{"show", "a", "b"},
		{"nope"},
	}
	for _, args := range cases {
		if _, err := execute(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
