// Package metrics defines the OpenCensus measures recorded by the server and
// exposes them in the Prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const Namespace = "dtree"

type Config struct {
	Enabled bool   `envconfig:"DTS_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"DTS_METRICS_PATH" default:"/metrics"`
}

// Result values of the result tag.
const (
	ResultOK          = "ok"
	ResultClientError = "client_error"
	ResultModelError  = "model_error"
	ResultTimeout     = "timeout"
)

var (
	KeyResult = tag.MustNewKey("result")

	MPredictions = stats.Int64("predictions", "Number of prediction requests", stats.UnitDimensionless)
	MLatency     = stats.Float64("prediction_latency", "Prediction request latency", stats.UnitMilliseconds)
)

var Views = []*view.View{
	{
		Name:        "predictions_total",
		Measure:     MPredictions,
		Description: "Number of prediction requests by result",
		TagKeys:     []tag.Key{KeyResult},
		Aggregation: view.Count(),
	},
	{
		Name:        "prediction_latency_ms",
		Measure:     MLatency,
		Description: "Distribution of prediction request latency",
		TagKeys:     []tag.Key{KeyResult},
		Aggregation: view.Distribution(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000),
	},
}

var registerOnce sync.Once

// Register registers Views once per process.
func Register() error {
	var err error
	registerOnce.Do(func() {
		err = view.Register(Views...)
	})
	if err != nil {
		return fmt.Errorf("register views: %w", err)
	}
	return nil
}

// NewHandler registers the views and returns a Prometheus scrape handler.
func NewHandler() (http.Handler, error) {
	if err := Register(); err != nil {
		return nil, err
	}
	exporter, err := prometheus.NewExporter(prometheus.Options{Namespace: Namespace})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	return exporter, nil
}

// RecordPrediction records one finished prediction request.
func RecordPrediction(ctx context.Context, result string, elapsed time.Duration) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyResult, result)},
		MPredictions.M(1),
		MLatency.M(float64(elapsed)/float64(time.Millisecond)),
	)
}
