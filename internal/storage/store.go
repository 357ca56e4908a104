package storage

import (
	"context"

	"gensuite/internal/model"
)

// Store persists runs and the artifacts attached to them.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first. limit <= 0 means all of them.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveTimeline(ctx context.Context, runID string, timeline []model.TimelinePoint) error
	GetTimeline(ctx context.Context, runID string) ([]model.TimelinePoint, bool, error)
	SaveTestSuite(ctx context.Context, runID string, tests []model.TestCaseRecord) error
	GetTestSuite(ctx context.Context, runID string) ([]model.TestCaseRecord, bool, error)
	SaveGoals(ctx context.Context, runID string, goals []model.GoalRecord) error
	GetGoals(ctx context.Context, runID string) ([]model.GoalRecord, bool, error)
}
