package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-sod/dtree/internal/predictor/tree"
)

type Status uint8

const (
	StatusStarted Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusStarted:
		return "started"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func NewRun(datasetPath, artifactPath string, params tree.Params, startedAt time.Time) Run {
	return Run{
		ID:           uuid.New(),
		Status:       StatusStarted,
		DatasetPath:  datasetPath,
		ArtifactPath: artifactPath,
		Params:       params,
		StartedAt:    startedAt,
	}
}

// Run records one execution of the trainer.
type Run struct {
	ID               uuid.UUID   `json:"id"`
	Status           Status      `json:"status"`
	StatusText       string      `json:"statusText"`
	FailedStage      string      `json:"failedStage,omitempty"`
	Error            string      `json:"error,omitempty"`
	DatasetPath      string      `json:"datasetPath"`
	DatasetChecksum  string      `json:"datasetChecksum,omitempty"`
	Rows             int         `json:"rows"`
	Features         int         `json:"features"`
	Labels           []string    `json:"labels,omitempty"`
	Params           tree.Params `json:"params"`
	HoldoutAccuracy  *float64    `json:"holdoutAccuracy,omitempty"`
	TreeDepth        int         `json:"treeDepth"`
	TreeLeaves       int         `json:"treeLeaves"`
	ArtifactPath     string      `json:"artifactPath"`
	ArtifactChecksum string      `json:"artifactChecksum,omitempty"`
	StartedAt        time.Time   `json:"startedAt"`
	FinishedAt       time.Time   `json:"finishedAt,omitempty"`
}

func (r *Run) Succeed(finishedAt time.Time) {
	r.Status = StatusSucceeded
	r.StatusText = r.Status.String()
	r.FinishedAt = finishedAt
}

func (r *Run) Fail(stage string, err error, finishedAt time.Time) {
	r.Status = StatusFailed
	r.StatusText = r.Status.String()
	r.FailedStage = stage
	r.Error = err.Error()
	r.FinishedAt = finishedAt
}
