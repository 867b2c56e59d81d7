package predict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-sod/dtree/internal/httputil"
	"github.com/go-sod/dtree/internal/metrics"
	"github.com/go-sod/dtree/internal/predictor"
	"github.com/go-sod/dtree/pkg/math/vector"
)

const contentTypeCSV = "text/csv"

type response struct {
	Prediction string `json:"prediction"`
	Class      int    `json:"class"`
}

// NewHandler serves POST /invocations against a loaded model.
func NewHandler(cfg *Config, model predictor.Predictor) (http.Handler, error) {
	if model == nil {
		return nil, errors.New("predict handler requires a model")
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max body bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	return &handler{
		cfg:   cfg,
		model: model,
	}, nil
}

type handler struct {
	model predictor.Predictor
	cfg   *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := h.predict(ctx, w, r)
	if err != nil {
		metrics.RecordPrediction(ctx, resultFor(err), time.Since(start))
		httputil.RespError(ctx, w, err)
		return
	}
	metrics.RecordPrediction(ctx, metrics.ResultOK, time.Since(start))
	httputil.RespJSON(ctx, w, http.StatusOK, resp)
}

func (h *handler) predict(ctx context.Context, w http.ResponseWriter, r *http.Request) (*response, error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return nil, httputil.Errorf(httputil.KindMethod, "method %v is not allowed", r.Method)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != contentTypeCSV {
		return nil, httputil.Errorf(httputil.KindMediaType, "content-type is not %s", contentTypeCSV)
	}

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httputil.Errorf(httputil.KindTooLarge, "body is too large, max allowed size is %d bytes", h.cfg.MaxBodyBytes)
		}
		return nil, httputil.Errorf(httputil.KindMalformed, "unable to read body: %v", err)
	}
	if !utf8.Valid(body) {
		return nil, httputil.Errorf(httputil.KindMalformed, "body is not valid utf-8")
	}

	vec, err := vector.Parse(string(body))
	if err != nil {
		return nil, httputil.Errorf(httputil.KindMalformed, "malformed csv row: %v", err)
	}
	if vec.Dimensions() != h.model.Features() {
		return nil, httputil.Errorf(httputil.KindArity, "got %d features, expected %d", vec.Dimensions(), h.model.Features())
	}

	if err := ctx.Err(); err != nil {
		return nil, httputil.Errorf(httputil.KindTimeout, "request timed out: %v", err)
	}

	conclusion, err := h.model.Predict(vec)
	if err != nil {
		if errors.Is(err, predictor.ErrDimMismatch) {
			return nil, &httputil.Error{Kind: httputil.KindArity, Err: err}
		}
		return nil, &httputil.Error{Kind: httputil.KindModel, Err: fmt.Errorf("predict: %w", err)}
	}
	return &response{Prediction: conclusion.Label, Class: conclusion.ClassID}, nil
}

func resultFor(err error) string {
	var e *httputil.Error
	if !errors.As(err, &e) {
		return metrics.ResultModelError
	}
	switch {
	case e.Kind == httputil.KindTimeout:
		return metrics.ResultTimeout
	case httputil.StatusFor(e.Kind) < http.StatusInternalServerError:
		return metrics.ResultClientError
	default:
		return metrics.ResultModelError
	}
}
