package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"gensuite/internal/config"
	"gensuite/internal/model"
	"gensuite/pkg/gensuite"
)

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func percent(ratio float64) string {
	return humanize.FormatFloat("#.##", ratio*100) + "%"
}

func elapsed(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func printRunSummary(w io.Writer, s gensuite.RunSummary) {
	r := s.Run
	fmt.Fprintf(w, "run_id=%s subject=%s algorithm=%s seed=%d\n", r.ID, r.Subject, r.Algorithm, r.Seed)
	fmt.Fprintf(w, "coverage=%s goals=%d/%d tests=%d statements=%d\n",
		percent(r.FinalCoverage), r.CoveredGoals, r.TotalGoals, r.Tests, r.Length)
	fmt.Fprintf(w, "iterations=%s executions=%s statement_executions=%s duration=%s\n",
		humanize.Comma(int64(r.Iterations)), humanize.Comma(int64(r.TestExecutions)),
		humanize.Comma(int64(r.StatementExecutions)), elapsed(r.DurationMillis))
	if r.Interrupted {
		fmt.Fprintln(w, "interrupted=true")
	}
	if s.ArtifactsDir != "" {
		fmt.Fprintf(w, "artifacts=%s\n", s.ArtifactsDir)
	}
}

func printBenchmark(w io.Writer, cfg config.Configuration, result gensuite.BenchmarkResult) {
	b := result.Summary
	fmt.Fprintf(w, "benchmark subject=%s algorithm=%s runs=%d\n", cfg.Subject, cfg.Search.Algorithm, b.Runs)
	fmt.Fprintf(w, "coverage mean=%s std=%s min=%s max=%s\n",
		percent(b.CoverageMean), percent(b.CoverageStd), percent(b.CoverageMin), percent(b.CoverageMax))
	fmt.Fprintf(w, "full_coverage=%d success_rate=%s iterations_mean=%s tests_mean=%s duration_mean=%s\n",
		b.FullCoverageRuns, percent(b.SuccessRate),
		humanize.FormatFloat("#.#", b.IterationsMean), humanize.FormatFloat("#.#", b.TestsMean),
		elapsed(int64(b.DurationMeanMillis)))
}

func printRuns(w io.Writer, runs []model.RunRecord, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSUBJECT\tALGORITHM\tSEED\tCOVERAGE\tTESTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
			r.ID, humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Subject, r.Algorithm, r.Seed, percent(r.FinalCoverage), r.Tests)
	}
	_ = tw.Flush()
}

func printDetail(w io.Writer, d gensuite.RunDetail, showTests bool) {
	printRunSummary(w, gensuite.RunSummary{RunID: d.Run.ID, Run: d.Run})
	if n := len(d.Timeline); n > 0 {
		first, last := d.Timeline[0], d.Timeline[n-1]
		fmt.Fprintf(w, "timeline points=%d first_coverage=%s last_coverage=%s\n",
			n, percent(first.Coverage), percent(last.Coverage))
	}
	var uncovered []string
	for _, g := range d.Goals {
		if !g.Covered {
			uncovered = append(uncovered, g.Goal)
		}
	}
	if len(uncovered) > 0 {
		fmt.Fprintf(w, "uncovered=%s\n", strings.Join(uncovered, ","))
	}
	if !showTests {
		return
	}
	for _, tc := range d.Tests {
		fmt.Fprintf(w, "# test %d (%s)\n", tc.Index, english.Plural(len(tc.Statements), "statement", "statements"))
		for _, line := range tc.Statements {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func printSubjects(w io.Writer, items []gensuite.SubjectItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tOBJECTS\tBRANCH GOALS\tLINES\tDESCRIPTION")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", item.Name, item.Objects, item.BranchGoals, item.Lines, item.Description)
	}
	_ = tw.Flush()
}
