package storage

import (
	"context"
	"sort"
	"sync"

	"gensuite/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	order       map[string]int
	saved       int
	timelines   map[string][]model.TimelinePoint
	suites      map[string][]model.TestCaseRecord
	goals       map[string][]model.GoalRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.order = make(map[string]int)
	s.saved = 0
	s.timelines = make(map[string][]model.TimelinePoint)
	s.suites = make(map[string][]model.TestCaseRecord)
	s.goals = make(map[string][]model.GoalRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.order[run.ID]; !ok {
		s.saved++
		s.order[run.ID] = s.saved
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			// Prefer later saved runs for equal timestamps.
			return s.order[runs[i].ID] > s.order[runs[j].ID]
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) SaveTimeline(_ context.Context, runID string, timeline []model.TimelinePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timelines[runID] = append([]model.TimelinePoint(nil), timeline...)
	return nil
}

func (s *MemoryStore) GetTimeline(_ context.Context, runID string) ([]model.TimelinePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timeline, ok := s.timelines[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.TimelinePoint(nil), timeline...), true, nil
}

func (s *MemoryStore) SaveTestSuite(_ context.Context, runID string, tests []model.TestCaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suites[runID] = copyTests(tests)
	return nil
}

func (s *MemoryStore) GetTestSuite(_ context.Context, runID string) ([]model.TestCaseRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tests, ok := s.suites[runID]
	if !ok {
		return nil, false, nil
	}
	return copyTests(tests), true, nil
}

func (s *MemoryStore) SaveGoals(_ context.Context, runID string, goals []model.GoalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goals[runID] = append([]model.GoalRecord(nil), goals...)
	return nil
}

func (s *MemoryStore) GetGoals(_ context.Context, runID string) ([]model.GoalRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	goals, ok := s.goals[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GoalRecord(nil), goals...), true, nil
}

func copyTests(tests []model.TestCaseRecord) []model.TestCaseRecord {
	copied := make([]model.TestCaseRecord, len(tests))
	for i, test := range tests {
		copied[i] = test
		copied[i].Statements = append([]string(nil), test.Statements...)
	}
	return copied
}
