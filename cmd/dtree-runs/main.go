package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/go-sod/dtree/internal/buildinfo"
	dtree "github.com/go-sod/dtree/internal/config"
	"github.com/go-sod/dtree/internal/logging"
	rundb "github.com/go-sod/dtree/internal/run/database"
	"github.com/go-sod/dtree/internal/run/model"
	"github.com/go-sod/dtree/internal/setup"
	"github.com/go-sod/dtree/internal/shutdown"
)

func main() {
	// stdout carries the JSON listing
	_, _ = fmt.Fprint(os.Stderr, buildinfo.Info.Banner("runs"))

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	err := run(ctx)
	done()
	if err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	config := dtree.RunsConfig{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	if env.Database() == nil {
		return errors.New("DTS_REGISTRY_PATH is not set")
	}
	db := rundb.New(env.Database())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if config.RunID != "" {
		id, err := uuid.Parse(config.RunID)
		if err != nil {
			return fmt.Errorf("parse run id: %w", err)
		}
		r, err := db.Find(ctx, id)
		if err != nil {
			return fmt.Errorf("find run %s: %w", id, err)
		}
		return enc.Encode(r)
	}

	var filter rundb.FilterFn
	if config.FailedOnly {
		filter = rundb.FilterFailed
	}
	runs, err := db.FindAll(ctx, filter)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []model.Run{}
	}
	return enc.Encode(runs)
}
