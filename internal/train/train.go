// Package train turns a labeled CSV file into a model artifact.
package train

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/go-sod/dtree/internal/artifact"
	"github.com/go-sod/dtree/internal/dataset"
	"github.com/go-sod/dtree/internal/logging"
	"github.com/go-sod/dtree/internal/predictor/tree"
	"github.com/go-sod/dtree/internal/run/model"
	"github.com/go-sod/dtree/internal/util"
)

type Stage string

const (
	StageLoad     Stage = "load"
	StageEncode   Stage = "encode"
	StageEvaluate Stage = "evaluate"
	StageFit      Stage = "fit"
	StageSave     Stage = "save"
	StageDiagram  Stage = "diagram"
	StageRecord   Stage = "record"
)

var ErrFeatureNames = errors.New("feature names do not match the feature count")

// StageError reports which step of a training run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// RunStore records training runs.
type RunStore interface {
	Store(ctx context.Context, run model.Run) error
}

type Option func(*Trainer)

func WithRunStore(store RunStore) Option {
	return func(t *Trainer) {
		t.runs = store
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		t.now = now
	}
}

func New(cfg *Config, opts ...Option) *Trainer {
	t := &Trainer{
		cfg: cfg,
		now: time.Now,
	}
	for _, f := range opts {
		f(t)
	}
	return t
}

type Trainer struct {
	cfg  *Config
	runs RunStore
	now  func() time.Time
}

// Report summarizes a successful run.
type Report struct {
	RunID            uuid.UUID
	Rows             int
	Features         int
	Labels           []string
	Holdout          *Evaluation
	Depth            int
	Leaves           int
	ArtifactPath     string
	ArtifactChecksum string
}

// Run executes one training run. Every failure is returned as a *StageError.
// When a run store is configured the run is recorded whether it succeeds or
// fails. The diagram is written before the artifact, so only a StageRecord
// failure leaves an artifact behind; it is complete and servable, only its
// registry entry is missing.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	logger := logging.FromContext(ctx)

	params, err := t.cfg.TreeParams()
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	if _, err := t.cfg.diagramFormat(); err != nil {
		return nil, stageErr(StageLoad, err)
	}

	run := model.NewRun(t.cfg.DataPath, t.cfg.OutputPath, params, t.now().UTC())
	report, err := t.run(ctx, &run, params)
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			run.Fail(string(se.Stage), se.Err, t.now().UTC())
		}
		if recErr := t.record(ctx, run); recErr != nil {
			logger.Errorf("unable to record failed run %s: %v", run.ID, recErr)
		}
		return nil, err
	}

	run.Succeed(t.now().UTC())
	if err := t.record(ctx, run); err != nil {
		return nil, stageErr(StageRecord, err)
	}
	return report, nil
}

func (t *Trainer) record(ctx context.Context, run model.Run) error {
	if t.runs == nil {
		return nil
	}
	return t.runs.Store(ctx, run)
}

func (t *Trainer) run(ctx context.Context, run *model.Run, params tree.Params) (*Report, error) {
	logger := logging.FromContext(ctx)

	logger.Infof("loading dataset %s", t.cfg.DataPath)
	ds, err := dataset.ReadFile(t.cfg.DataPath, dataset.WithFeatureCount(t.cfg.FeatureCount))
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	checksum, err := util.FileChecksum(t.cfg.DataPath)
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	if len(t.cfg.FeatureNames) > 0 && len(t.cfg.FeatureNames) != ds.Width() {
		return nil, stageErr(StageLoad, fmt.Errorf("%d names for %d features: %w", len(t.cfg.FeatureNames), ds.Width(), ErrFeatureNames))
	}
	run.DatasetChecksum = checksum
	run.Rows = ds.Len()
	run.Features = ds.Width()
	logger.Infof("loaded %d rows with %d features", ds.Len(), ds.Width())

	var labels *dataset.LabelSet
	if len(t.cfg.Labels) > 0 {
		labels, err = dataset.NewLabelSet(t.cfg.Labels)
	} else {
		labels, err = dataset.DeriveLabelSet(ds.Labels)
	}
	if err != nil {
		return nil, stageErr(StageEncode, err)
	}
	y, err := labels.EncodeAll(ds.Labels)
	if err != nil {
		return nil, stageErr(StageEncode, err)
	}
	run.Labels = labels.Labels()
	logger.Infof("label codes: %v", labels.Labels())

	var holdout *Evaluation
	if t.cfg.TestRatio > 0 {
		holdout, err = evaluate(ds, y, labels.Len(), params, t.cfg.TestRatio, t.cfg.SplitSeed)
		if errors.Is(err, dataset.ErrEmptySplit) {
			logger.Warnf("skipping holdout evaluation: %v", err)
		} else if err != nil {
			return nil, stageErr(StageEvaluate, err)
		}
	}
	if holdout != nil {
		acc := holdout.Accuracy
		run.HoldoutAccuracy = &acc
		logger.Infow("holdout evaluation",
			"trainRows", holdout.TrainRows,
			"testRows", holdout.TestRows,
			"accuracy", holdout.Accuracy,
			"confusion", holdout.Confusion,
		)
	}

	clf, err := tree.New(params)
	if err != nil {
		return nil, stageErr(StageFit, err)
	}
	if err := clf.Fit(ds.Features, y, labels.Len()); err != nil {
		return nil, stageErr(StageFit, err)
	}
	run.TreeDepth = clf.Depth()
	run.TreeLeaves = clf.Leaves()
	logger.Infof("fitted tree: depth %d, %d leaves", clf.Depth(), clf.Leaves())

	m := &artifact.Model{
		RunID:        run.ID,
		CreatedAt:    run.StartedAt,
		FeatureNames: t.cfg.FeatureNames,
		Labels:       labels,
		Tree:         clf,
	}
	if t.cfg.DiagramPath != "" {
		format, _ := t.cfg.diagramFormat()
		if err := writeDiagram(t.cfg.DiagramPath, format, m); err != nil {
			return nil, stageErr(StageDiagram, err)
		}
		logger.Infof("tree diagram written to %s", t.cfg.DiagramPath)
	}

	if err := artifact.WriteFile(t.cfg.OutputPath, m); err != nil {
		return nil, stageErr(StageSave, err)
	}
	sum, err := util.FileChecksum(t.cfg.OutputPath)
	if err != nil {
		return nil, stageErr(StageSave, err)
	}
	run.ArtifactChecksum = sum
	logger.Infof("model artifact written to %s", t.cfg.OutputPath)

	return &Report{
		RunID:            run.ID,
		Rows:             ds.Len(),
		Features:         ds.Width(),
		Labels:           labels.Labels(),
		Holdout:          holdout,
		Depth:            clf.Depth(),
		Leaves:           clf.Leaves(),
		ArtifactPath:     t.cfg.OutputPath,
		ArtifactChecksum: sum,
	}, nil
}

func writeDiagram(path string, format tree.Format, m *artifact.Model) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create diagram dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create diagram file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return m.Tree.Export(f, format, m.Names())
}
