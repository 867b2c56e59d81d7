package server

import (
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/go-sod/dtree/internal/httputil"
)

// HandlePing answers liveness probes without touching the model.
func HandlePing() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			w.WriteHeader(http.StatusOK)
		default:
			w.Header().Set("Allow", "GET, HEAD")
			httputil.RespError(r.Context(), w, httputil.Errorf(httputil.KindMethod, "method %v is not allowed", r.Method))
		}
	})
}

// NewHealthGRPC returns a gRPC server exposing the standard health service.
// Both the overall status and service report SERVING; the server is only
// built after the model has loaded.
func NewHealthGRPC(service string) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if service != "" {
		hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	}
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
