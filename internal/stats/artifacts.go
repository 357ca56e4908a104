package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gensuite/internal/model"
)

const (
	runFile      = "run.json"
	summaryFile  = "summary.json"
	timelineFile = "timeline.csv"
	testsFile    = "tests.json"
	goalsFile    = "goals.json"
)

// RunArtifacts is everything written to a run directory.
type RunArtifacts struct {
	Run      model.RunRecord        `json:"run"`
	Summary  Summary                `json:"summary"`
	Timeline []model.TimelinePoint  `json:"timeline"`
	Tests    []model.TestCaseRecord `json:"tests"`
	Goals    []model.GoalRecord     `json:"goals"`
}

// WriteRunArtifacts writes artifacts under baseDir/<run id> and returns the
// run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Run.ID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	if err := WriteTimelineCSV(filepath.Join(runDir, timelineFile), artifacts.Timeline); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, testsFile), artifacts.Tests); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, goalsFile), artifacts.Goals); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunArtifacts loads a run directory written by WriteRunArtifacts. ok is
// false when the run has no directory.
func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	runDir := filepath.Join(baseDir, runID)
	if _, err := os.Stat(runDir); err != nil {
		if os.IsNotExist(err) {
			return RunArtifacts{}, false, nil
		}
		return RunArtifacts{}, false, err
	}

	var artifacts RunArtifacts
	if err := readJSON(filepath.Join(runDir, runFile), &artifacts.Run); err != nil {
		return RunArtifacts{}, false, err
	}
	if err := readJSON(filepath.Join(runDir, summaryFile), &artifacts.Summary); err != nil {
		return RunArtifacts{}, false, err
	}
	timeline, err := ReadTimelineCSV(filepath.Join(runDir, timelineFile))
	if err != nil {
		return RunArtifacts{}, false, err
	}
	artifacts.Timeline = timeline
	if err := readJSON(filepath.Join(runDir, testsFile), &artifacts.Tests); err != nil {
		return RunArtifacts{}, false, err
	}
	if err := readJSON(filepath.Join(runDir, goalsFile), &artifacts.Goals); err != nil {
		return RunArtifacts{}, false, err
	}
	return artifacts, true, nil
}

// ExportRunArtifacts copies a run directory into outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range []string{runFile, summaryFile, timelineFile, testsFile, goalsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

var timelineHeader = []string{"iteration", "elapsed_ms", "coverage", "fitness", "size", "length"}

func WriteTimelineCSV(path string, timeline []model.TimelinePoint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(timelineHeader); err != nil {
		return err
	}
	for _, p := range timeline {
		if err := writer.Write([]string{
			strconv.Itoa(p.Iteration),
			strconv.FormatInt(p.ElapsedMillis, 10),
			strconv.FormatFloat(p.Coverage, 'f', -1, 64),
			strconv.FormatFloat(p.Fitness, 'f', -1, 64),
			strconv.Itoa(p.Size),
			strconv.Itoa(p.Length),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadTimelineCSV(path string) ([]model.TimelinePoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.TimelinePoint{}, nil
		}
		return nil, err
	}
	if len(header) != len(timelineHeader) {
		return nil, fmt.Errorf("timeline header must have %d columns, got %d", len(timelineHeader), len(header))
	}

	timeline := make([]model.TimelinePoint, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := parseTimelineRow(record)
		if err != nil {
			return nil, err
		}
		timeline = append(timeline, p)
	}
	return timeline, nil
}

func parseTimelineRow(record []string) (model.TimelinePoint, error) {
	var (
		p   model.TimelinePoint
		err error
	)
	if p.Iteration, err = strconv.Atoi(record[0]); err != nil {
		return p, fmt.Errorf("timeline iteration: %w", err)
	}
	if p.ElapsedMillis, err = strconv.ParseInt(record[1], 10, 64); err != nil {
		return p, fmt.Errorf("timeline elapsed: %w", err)
	}
	if p.Coverage, err = strconv.ParseFloat(record[2], 64); err != nil {
		return p, fmt.Errorf("timeline coverage: %w", err)
	}
	if p.Fitness, err = strconv.ParseFloat(record[3], 64); err != nil {
		return p, fmt.Errorf("timeline fitness: %w", err)
	}
	if p.Size, err = strconv.Atoi(record[4]); err != nil {
		return p, fmt.Errorf("timeline size: %w", err)
	}
	if p.Length, err = strconv.Atoi(record[5]); err != nil {
		return p, fmt.Errorf("timeline length: %w", err)
	}
	return p, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
