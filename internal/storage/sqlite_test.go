package storage

import (
	"context"
	"path/filepath"
	"testing"

	"gensuite/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "gensuite.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	exerciseStore(t, newTestSQLiteStore(t))
}

func TestSQLiteStoreUpsertKeepsSingleRun(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	run := model.RunRecord{VersionedRecord: Versioned(), ID: "run-1", Iterations: 1}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	run.Iterations = 9
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("resave run: %v", err)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Iterations != 9 {
		t.Fatalf("unexpected runs after upsert: %+v", runs)
	}
}

func TestSQLiteStoreInitIsIdempotent(t *testing.T) {
	store := newTestSQLiteStore(t)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "gensuite.db"))
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "run-1"}); err == nil {
		t.Fatal("expected error before init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
