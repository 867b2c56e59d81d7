package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-sod/dtree/internal/logging"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindMethod
	KindMediaType
	KindTooLarge
	KindMalformed
	KindArity
	KindModel
	KindTimeout
)

// statuses is the only place request failures are mapped to HTTP codes.
var statuses = map[Kind]int{
	KindInternal:  http.StatusInternalServerError,
	KindMethod:    http.StatusMethodNotAllowed,
	KindMediaType: http.StatusUnsupportedMediaType,
	KindTooLarge:  http.StatusRequestEntityTooLarge,
	KindMalformed: http.StatusBadRequest,
	KindArity:     http.StatusBadRequest,
	KindModel:     http.StatusInternalServerError,
	KindTimeout:   http.StatusServiceUnavailable,
}

func StatusFor(kind Kind) int {
	if status, ok := statuses[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a request failure of a known kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

type errorBody struct {
	Error string `json:"error"`
}

// RespError writes err as a JSON error body. Errors that are not *Error are
// answered as internal errors. Details of 5xx errors are only logged.
func RespError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logging.FromContext(ctx)
	kind := KindInternal
	var e *Error
	if errors.As(err, &e) {
		kind = e.Kind
	}
	status := StatusFor(kind)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Errorf("request failed: %v", err)
		msg = http.StatusText(status)
	} else {
		logger.Debugf("request rejected with %d: %v", status, err)
	}
	RespJSON(ctx, w, status, errorBody{Error: msg})
}

func RespJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	bytes, err := json.Marshal(v)
	if err != nil {
		logging.FromContext(ctx).Errorf("failed to encode output json: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, `{"error": "Internal Server Error"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes)
}

// Recover answers a panicking request with a JSON 500 instead of dropping
// the connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				ctx := r.Context()
				logging.FromContext(ctx).Errorf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
				RespError(ctx, w, fmt.Errorf("panic: %v", p))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
