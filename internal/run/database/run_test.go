package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/go-sod/dtree/internal/database"
	"github.com/go-sod/dtree/internal/predictor/tree"
	"github.com/go-sod/dtree/internal/run/model"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{
		FileName:    filepath.Join(t.TempDir(), "registry.db"),
		OpenTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unable to open registry: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(ctx); err != nil {
			t.Errorf("unable to close registry: %v", err)
		}
	})
	return New(db)
}

func TestStoreFind(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := model.NewRun("iris.csv", "model.bin", tree.DefaultParams(), started)
	run.Rows = 150
	run.Features = 4
	run.Labels = []string{"Iris-setosa", "Iris-versicolor", "Iris-virginica"}
	acc := 0.95
	run.HoldoutAccuracy = &acc
	run.Succeed(started.Add(time.Second))

	if err := db.Store(ctx, run); err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}

	got, err := db.Find(ctx, run.ID)
	if err != nil {
		t.Fatalf("unexpected find error: %v", err)
	}
	if got.ID != run.ID || got.Status != model.StatusSucceeded || got.Rows != 150 {
		t.Errorf("Find got: %+v, expected: %+v", got, run)
	}
	if got.HoldoutAccuracy == nil || *got.HoldoutAccuracy != acc {
		t.Errorf("holdout accuracy got: %v, expected: %v", got.HoldoutAccuracy, acc)
	}
	if got.Params != run.Params {
		t.Errorf("params got: %+v, expected: %+v", got.Params, run.Params)
	}
}

func TestFindMissing(t *testing.T) {
	db := openDB(t)
	if _, err := db.Find(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find error got: %v, expected: %v", err, ErrNotFound)
	}
}

func TestFindAll(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	// stored newest first to check ordering
	for i := 3; i > 0; i-- {
		run := model.NewRun("iris.csv", "model.bin", tree.DefaultParams(), base.Add(time.Duration(i)*time.Minute))
		if i == 2 {
			run.Fail("load", errors.New("no such file"), base)
		} else {
			run.Succeed(base)
		}
		if err := db.Store(ctx, run); err != nil {
			t.Fatalf("unexpected store error: %v", err)
		}
		ids = append([]uuid.UUID{run.ID}, ids...)
	}

	tests := []struct {
		name     string
		filter   FilterFn
		expected []uuid.UUID
	}{
		{name: "all", filter: nil, expected: ids},
		{
			name:     "failed",
			filter:   FilterFailed,
			expected: []uuid.UUID{ids[1]},
		},
		{
			name:     "none",
			filter:   func(model.Run) bool { return false },
			expected: nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			runs, err := db.FindAll(ctx, tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(runs) != len(tc.expected) {
				t.Fatalf("runs count got: %d, expected: %d", len(runs), len(tc.expected))
			}
			for i := range runs {
				if runs[i].ID != tc.expected[i] {
					t.Errorf("run %d got: %v, expected: %v", i, runs[i].ID, tc.expected[i])
				}
			}
		})
	}
}

func TestFindAllEmpty(t *testing.T) {
	runs, err := openDB(t).FindAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs got: %d, expected: 0", len(runs))
	}
}
