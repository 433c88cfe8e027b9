package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"notireport/internal/config"
	apierrors "notireport/internal/errors"
	"notireport/internal/shared/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("os/signal.signal_recv"))
}

func newTestApplication(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Report.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.OTelProviders.Shutdown(context.Background()) })
	return a
}

func TestRoutes(t *testing.T) {
	a := newTestApplication(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		contains   string
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK, `"status":"ok"`},
		{"ready", http.MethodGet, "/api/health/ready", http.StatusOK, `"status":"ready"`},
		{"version", http.MethodGet, "/api/version", http.StatusOK, `"api_version":"v1"`},
		{"variants", http.MethodGet, "/api/reports/variants", http.StatusOK, "comparativo-notificador"},
		{"not found", http.MethodGet, "/api/nothing", http.StatusNotFound, apierrors.TypeNotFound},
		{"method not allowed", http.MethodDelete, "/api/reports/variants", http.StatusMethodNotAllowed, apierrors.TypeMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestGenerateThroughRouterRecordsMetrics(t *testing.T) {
	a := newTestApplication(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("variant", "dto-pcl-mes"))
	part, err := mw.CreateFormFile("file", "notificaciones.xlsx")
	require.NoError(t, err)
	_, err = part.Write(testutil.StandardWorkbook(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), config.FilenameDTOPCL)

	metrics := httptest.NewRecorder()
	a.Router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	scrape := metrics.Body.String()
	assert.Contains(t, scrape, "notireport_reports_total")
	assert.Contains(t, scrape, "notireport_stage_duration_seconds")
	assert.Contains(t, scrape, "http_requests_total")
}

func TestRateLimitedRouter(t *testing.T) {
	a := newTestApplication(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})

	first := httptest.NewRecorder()
	a.Router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	a.Router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newTestApplication(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsOnBusyAddress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := newTestApplication(t, nil)
	a.Server.Addr = strings.TrimPrefix(srv.URL, "http://")

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
