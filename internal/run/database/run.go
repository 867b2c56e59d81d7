package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/go-sod/dtree/internal/database"
	"github.com/go-sod/dtree/internal/run/model"
)

const runsBucket = "runs"

var ErrNotFound = errors.New("run not found")

type FilterFn func(run model.Run) bool

func FilterFailed(run model.Run) bool {
	return run.Status == model.StatusFailed
}

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// Store inserts or replaces run, keyed by its id.
func (db *DB) Store(_ context.Context, run model.Run) error {
	bytes, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if err := b.Put([]byte(run.ID.String()), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}
	return nil
}

func (db *DB) Find(_ context.Context, id uuid.UUID) (model.Run, error) {
	var run model.Run
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(id.String()))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &run)
	}); err != nil {
		return model.Run{}, fmt.Errorf("view transaction error: %w", err)
	}
	return run, nil
}

// FindAll returns the runs accepted by filter, oldest first.
func (db *DB) FindAll(_ context.Context, filter FilterFn) ([]model.Run, error) {
	var runs []model.Run
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var run model.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("run unmarshal error, %q", err)
			}
			if filter == nil || filter(run) {
				runs = append(runs, run)
			}
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}
