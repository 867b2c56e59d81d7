// Package setup reads the environment into a config struct and builds the
// shared resources the config asks for.
package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/go-sod/dtree/internal/artifact"
	"github.com/go-sod/dtree/internal/database"
	"github.com/go-sod/dtree/internal/logging"
	"github.com/go-sod/dtree/internal/metrics"
	"github.com/go-sod/dtree/internal/predictor"
	"github.com/go-sod/dtree/internal/srvenv"
)

type PredictorConfigProvider interface {
	PredictConfig() *predictor.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type MetricsConfigProvider interface {
	MetricsConfig() *metrics.Config
}

// Setup processes the environment into config and returns the environment
// for the providers config implements. On error every resource opened so far
// is closed.
func Setup(ctx context.Context, config interface{}) (env *srvenv.SrvEnv, err error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var db *database.DB
	defer func() {
		if err != nil && db != nil {
			_ = db.Close(ctx)
		}
	}()

	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		if cfg := dbConfigProvider.DatabaseConfig(); cfg.Enabled() {
			logger.Info("Configuring registry db")
			db, err = database.NewFromEnv(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("unable to open registry db: %w", err)
			}
			serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
		}
	}

	if predictConfigProvider, ok := config.(PredictorConfigProvider); ok {
		logger.Info("Configuring predictor")
		provideFn, err := ProvidePredictorFor(predictConfigProvider.PredictConfig())
		if err != nil {
			return nil, fmt.Errorf("unable create predictor provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPredictor(provideFn))
	}

	if metricsConfigProvider, ok := config.(MetricsConfigProvider); ok && metricsConfigProvider.MetricsConfig().Enabled {
		logger.Info("Configuring metrics")
		h, err := metrics.NewHandler()
		if err != nil {
			return nil, fmt.Errorf("unable create metrics handler: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithMetrics(h))
	}

	return srvenv.New(serverEnvOpts...), nil
}

func ProvidePredictorFor(cfg *predictor.Config) (predictor.ProvideFn, error) {
	switch cfg.PredictorType() {
	case predictor.AlgTypeDecisionTree:
		path := cfg.Path
		return func() (predictor.Predictor, error) {
			m, err := artifact.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("unable load model %s: %w", path, err)
			}
			return m, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown predictor type: %s", cfg.PredictorType())
	}
}
