package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-sod/dtree/internal/buildinfo"
	dtree "github.com/go-sod/dtree/internal/config"
	"github.com/go-sod/dtree/internal/logging"
	rundb "github.com/go-sod/dtree/internal/run/database"
	"github.com/go-sod/dtree/internal/setup"
	"github.com/go-sod/dtree/internal/shutdown"
	"github.com/go-sod/dtree/internal/train"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Info.Banner("trainer"))

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	err := run(ctx)
	done()
	if err != nil {
		var se *train.StageError
		if errors.As(err, &se) {
			logger.Fatalw("training failed", "stage", se.Stage, "error", se.Err)
		}
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	config := dtree.TrainConfig{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	var opts []train.Option
	if db := env.Database(); db != nil {
		opts = append(opts, train.WithRunStore(rundb.New(db)))
	}

	report, err := train.New(&config.Train, opts...).Run(ctx)
	if err != nil {
		return err
	}

	fields := []interface{}{
		"run", report.RunID,
		"rows", report.Rows,
		"features", report.Features,
		"labels", report.Labels,
		"depth", report.Depth,
		"leaves", report.Leaves,
		"artifact", report.ArtifactPath,
		"checksum", report.ArtifactChecksum,
	}
	if report.Holdout != nil {
		fields = append(fields, "holdoutAccuracy", report.Holdout.Accuracy)
	}
	logger.Infow("training finished", fields...)
	return nil
}
