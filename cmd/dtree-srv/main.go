package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/go-sod/dtree/internal/buildinfo"
	dtree "github.com/go-sod/dtree/internal/config"
	"github.com/go-sod/dtree/internal/httputil"
	"github.com/go-sod/dtree/internal/logging"
	"github.com/go-sod/dtree/internal/predict"
	"github.com/go-sod/dtree/internal/server"
	"github.com/go-sod/dtree/internal/setup"
	"github.com/go-sod/dtree/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Info.Banner("server"))

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	err := run(ctx)
	done()
	if err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	config := dtree.ServeConfig{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	// the model is loaded before any socket is bound
	model, err := env.ProvidePredictor()()
	if err != nil {
		return fmt.Errorf("predictor provider function error: %w", err)
	}
	logger.Infof("model %s loaded: %d features", config.Predictor.Path, model.Features())

	predictHandler, err := predict.NewHandler(&config.Predict, model)
	if err != nil {
		return fmt.Errorf("predict.NewHandler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ping", server.HandlePing())
	mux.Handle("/invocations", predictHandler)
	if h := env.MetricsHandler(); h != nil {
		mux.Handle(config.Metrics.Path, h)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("http listening on %s", srv.Addr())
		return srv.ServeHTTPHandler(gctx, httputil.Recover(mux))
	})

	if config.GRPCAddr != "" {
		grpcSrv, err := server.New(config.GRPCAddr)
		if err != nil {
			return fmt.Errorf("server.New: %w", err)
		}
		grpcServer, health := server.NewHealthGRPC(buildinfo.Info.Name())
		g.Go(func() error {
			logger.Infof("grpc health listening on %s", grpcSrv.Addr())
			return grpcSrv.ServeGRPC(gctx, grpcServer)
		})
		g.Go(func() error {
			<-gctx.Done()
			health.Shutdown()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
