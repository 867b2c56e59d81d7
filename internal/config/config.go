package dtree

import (
	"github.com/go-sod/dtree/internal/database"
	"github.com/go-sod/dtree/internal/metrics"
	"github.com/go-sod/dtree/internal/predict"
	"github.com/go-sod/dtree/internal/predictor"
	"github.com/go-sod/dtree/internal/setup"
	"github.com/go-sod/dtree/internal/train"
)

var (
	_ setup.PredictorConfigProvider = (*ServeConfig)(nil)
	_ setup.MetricsConfigProvider   = (*ServeConfig)(nil)
	_ setup.DatabaseConfigProvider  = (*TrainConfig)(nil)
	_ setup.DatabaseConfigProvider  = (*RunsConfig)(nil)
)

// ServeConfig configures dtree-srv.
type ServeConfig struct {
	SrvAddr string `envconfig:"DTS_ADDR" default:"0.0.0.0:8080"`
	// Empty disables the gRPC health endpoint
	GRPCAddr  string `envconfig:"DTS_GRPC_ADDR"`
	Predict   predict.Config
	Predictor predictor.Config
	Metrics   metrics.Config
}

func (c *ServeConfig) PredictConfig() *predictor.Config {
	return &c.Predictor
}

func (c *ServeConfig) MetricsConfig() *metrics.Config {
	return &c.Metrics
}

// TrainConfig configures dtree-train.
type TrainConfig struct {
	Train    train.Config
	Database database.Config
}

func (c *TrainConfig) DatabaseConfig() *database.Config {
	return &c.Database
}

// RunsConfig configures dtree-runs.
type RunsConfig struct {
	// Prints the single run with this id instead of the list
	RunID      string `envconfig:"DTS_RUNS_ID"`
	FailedOnly bool   `envconfig:"DTS_RUNS_FAILED_ONLY" default:"false"`
	Database   database.Config
}

func (c *RunsConfig) DatabaseConfig() *database.Config {
	return &c.Database
}
