package srvenv

import (
	"context"
	"net/http"

	"github.com/go-sod/dtree/internal/database"
	"github.com/go-sod/dtree/internal/predictor"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database  *database.DB
	predictor predictor.ProvideFn
	metrics   http.Handler
}

func (s *SrvEnv) ProvidePredictor() predictor.ProvideFn {
	return s.predictor
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

// MetricsHandler is nil when metrics are disabled.
func (s *SrvEnv) MetricsHandler() http.Handler {
	return s.metrics
}

func WithPredictor(fn predictor.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.predictor = fn
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func WithMetrics(h http.Handler) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.metrics = h
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
