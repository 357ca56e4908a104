package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gensuite/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every record as a JSON payload keyed by run id.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.ID, run.StartedAt.UnixNano(), run.SchemaVersion, run.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SaveTimeline(ctx context.Context, runID string, timeline []model.TimelinePoint) error {
	payload, err := EncodeTimeline(timeline)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "timelines", runID, payload)
}

func (s *SQLiteStore) GetTimeline(ctx context.Context, runID string) ([]model.TimelinePoint, bool, error) {
	payload, ok, err := s.getPayload(ctx, "timelines", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	timeline, err := DecodeTimeline(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode timeline %s: %w", runID, err)
	}
	return timeline, true, nil
}

func (s *SQLiteStore) SaveTestSuite(ctx context.Context, runID string, tests []model.TestCaseRecord) error {
	payload, err := EncodeTestSuite(tests)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "test_suites", runID, payload)
}

func (s *SQLiteStore) GetTestSuite(ctx context.Context, runID string) ([]model.TestCaseRecord, bool, error) {
	payload, ok, err := s.getPayload(ctx, "test_suites", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	tests, err := DecodeTestSuite(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode test suite %s: %w", runID, err)
	}
	return tests, true, nil
}

func (s *SQLiteStore) SaveGoals(ctx context.Context, runID string, goals []model.GoalRecord) error {
	payload, err := EncodeGoals(goals)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "goals", runID, payload)
}

func (s *SQLiteStore) GetGoals(ctx context.Context, runID string) ([]model.GoalRecord, bool, error) {
	payload, ok, err := s.getPayload(ctx, "goals", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	goals, err := DecodeGoals(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode goals %s: %w", runID, err)
	}
	return goals, true, nil
}

// savePayload upserts into one of the run_id keyed artifact tables. table
// is always a constant from this file.
func (s *SQLiteStore) savePayload(ctx context.Context, table, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO `+table+` (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) getPayload(ctx context.Context, table, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM `+table+` WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS timelines (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS test_suites (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS goals (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
