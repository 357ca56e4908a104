package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarises one generation run.
type RunRecord struct {
	VersionedRecord
	ID                  string    `json:"id"`
	Subject             string    `json:"subject"`
	Algorithm           string    `json:"algorithm"`
	Coverage            string    `json:"coverage"`
	Seed                int64     `json:"seed"`
	StartedAt           time.Time `json:"started_at"`
	DurationMillis      int64     `json:"duration_ms"`
	Iterations          int       `json:"iterations"`
	FinalCoverage       float64   `json:"final_coverage"`
	FinalFitness        float64   `json:"final_fitness"`
	CoveredGoals        int       `json:"covered_goals"`
	TotalGoals          int       `json:"total_goals"`
	Tests               int       `json:"tests"`
	Length              int       `json:"length"`
	TestExecutions      int       `json:"test_executions"`
	StatementExecutions int       `json:"statement_executions"`
	// Interrupted is set when the run was cut short by its context.
	Interrupted bool `json:"interrupted,omitempty"`
}

// TimelinePoint is the state of the best individual after one iteration.
type TimelinePoint struct {
	Iteration     int     `json:"iteration"`
	ElapsedMillis int64   `json:"elapsed_ms"`
	Coverage      float64 `json:"coverage"`
	Fitness       float64 `json:"fitness"`
	Size          int     `json:"size"`
	Length        int     `json:"length"`
}

// TestCaseRecord is one generated test case in rendered form.
type TestCaseRecord struct {
	VersionedRecord
	Index      int      `json:"index"`
	Hash       uint64   `json:"hash"`
	Statements []string `json:"statements"`
}

type GoalRecord struct {
	Goal    string  `json:"goal"`
	Kind    string  `json:"kind"`
	Covered bool    `json:"covered"`
	Fitness float64 `json:"fitness"`
}
