package exporters

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smazurov/procspawn/internal/metrics"
	"github.com/smazurov/procspawn/internal/process"
)

func testRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.ProcessStarted(process.StartInfo{Binary: "http-test"})
	return reg, c
}

func TestHTTPHandler(t *testing.T) {
	reg, _ := testRegistry()
	handler := HTTPHandler(reg)
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if !strings.Contains(body, `procspawn_launcher_spawned_total{binary="http-test"} 1`) {
		t.Errorf("expected launcher metrics in response, got:\n%s", body)
	}
}

func TestServer(t *testing.T) {
	reg, _ := testRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := Listen("127.0.0.1:0", reg, logger)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go srv.Serve()
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "procspawn_launcher_live") {
		t.Error("expected live gauge in response")
	}
}
