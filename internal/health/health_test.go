package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/promptchain/internal/logger"
)

func TestServer_Endpoints(t *testing.T) {
	tests := []struct {
		name       string
		gateway    bool
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health_ok", true, "/health", http.StatusOK, `"status":"ok"`},
		{"health_degraded", false, "/health", http.StatusServiceUnavailable, `"status":"degraded"`},
		{"ready_ok", true, "/ready", http.StatusOK, "ready"},
		{"ready_failing", false, "/ready", http.StatusServiceUnavailable, "not ready: [gateway]"},
		{"live_always", false, "/live", http.StatusOK, "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(0, "test", logger.NewNop())
			s.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "" })
			s.RegisterCheck("gateway", func(context.Context) (bool, string) {
				if tt.gateway {
					return true, ""
				}
				return false, "disconnected"
			})

			srv := httptest.NewServer(s.Handler())
			defer srv.Close()

			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("expected body containing %q, got %q", tt.wantBody, body)
			}
		})
	}
}

func TestServer_HealthReportsEachCheck(t *testing.T) {
	s := NewServer(0, "v1", logger.NewNop())
	s.RegisterCheck("gateway", func(context.Context) (bool, string) { return false, "disconnected" })

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Version != "v1" {
		t.Errorf("expected version v1, got %q", status.Version)
	}
	if c := status.Checks["gateway"]; c.Healthy || c.Message != "disconnected" {
		t.Errorf("unexpected gateway check %+v", c)
	}
}
