package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHandlePing(t *testing.T) {
	tests := []struct {
		method         string
		expectedStatus int
	}{
		{method: http.MethodGet, expectedStatus: http.StatusOK},
		{method: http.MethodHead, expectedStatus: http.StatusOK},
		{method: http.MethodPost, expectedStatus: http.StatusMethodNotAllowed},
		{method: http.MethodDelete, expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandlePing().ServeHTTP(rec, httptest.NewRequest(tc.method, "/ping", nil))
			if rec.Code != tc.expectedStatus {
				t.Errorf("status got: %d, expected: %d", rec.Code, tc.expectedStatus)
			}
			if tc.expectedStatus == http.StatusOK && rec.Body.Len() != 0 {
				t.Errorf("body got: %q, expected empty", rec.Body.String())
			}
		})
	}
}

func TestServeHTTPHandler(t *testing.T) {
	srv, err := New("127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ServeHTTPHandler(ctx, HandlePing())
	}()

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", srv.Addr()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status got: %d, expected: %d", resp.StatusCode, http.StatusOK)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("serve returned: %v", err)
		}
	case <-time.After(2 * shutdownTimeout):
		t.Fatalf("server did not stop")
	}
}

func TestNewBusyAddress(t *testing.T) {
	srv, err := New("127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer srv.listener.Close()
	if _, err := New(srv.Addr()); err == nil {
		t.Errorf("binding a busy address must fail")
	}
}

func TestServeGRPCHealth(t *testing.T) {
	srv, err := New("127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	grpcSrv, _ := NewHealthGRPC("dtree")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ServeGRPC(ctx, grpcSrv)
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, err := grpc.DialContext(dialCtx, srv.Addr(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		t.Fatalf("unable to dial: %v", err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	for _, service := range []string{"", "dtree"} {
		resp, err := client.Check(dialCtx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("service %q status got: %v, expected: SERVING", service, resp.Status)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("serve returned: %v", err)
		}
	case <-time.After(2 * shutdownTimeout):
		t.Fatalf("grpc server did not stop")
	}
}
