package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/internal/metrics"
	"github.com/aristath/riskpulse/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Run(_ context.Context, assets []domain.AssetConfig) domain.BatchResult {
	reports := make([]domain.RiskReport, len(assets))
	for i, a := range assets {
		reports[i] = domain.RiskReport{AssetID: a.AssetID, Status: domain.StatusOK}
	}
	return domain.NewBatchResult("run-test", reports, time.Now())
}

func (stubAnalyzer) AnalyzeAsset(_ context.Context, asset domain.AssetConfig) domain.RiskReport {
	return domain.RiskReport{AssetID: asset.AssetID, Status: domain.StatusOK}
}

type stubJob struct {
	runs atomic.Int32
}

func (j *stubJob) Run() error {
	j.runs.Add(1)
	return nil
}

func (j *stubJob) Name() string { return "portfolio_analysis" }

func newTestServer() *Server {
	return newTestServerWithJobs(nil)
}

func newTestServerWithJobs(jobs JobRegistry) *Server {
	rec := metrics.New(prometheus.NewRegistry())
	return New(Config{
		Log:      zerolog.Nop(),
		Port:     0,
		DevMode:  true,
		Version:  "test",
		Analyzer: stubAnalyzer{},
		Portfolio: func() ([]domain.AssetConfig, error) {
			return []domain.AssetConfig{{AssetID: "bitcoin"}}, nil
		},
		Metrics: rec.Handler(),
		Jobs:    jobs,
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "riskpulse", body["service"])
	assert.NotEmpty(t, body["uptime"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	s := New(Config{Log: zerolog.Nop(), DevMode: true})

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobs_DisabledWithoutRegistry(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRiskRoutesMounted(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/risk/portfolio", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-test", result.RunID)
	require.Len(t, result.Data, 1)

	w = httptest.NewRecorder()
	body := strings.NewReader(`{"assets":[{"asset_id":"ethereum"}]}`)
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyze", body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJobs(t *testing.T) {
	sched := scheduler.New(zerolog.Nop())
	job := &stubJob{}
	sched.Register(job)
	s := newTestServerWithJobs(sched)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "portfolio_analysis")

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/portfolio_analysis", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Greater(t, status.Goroutines, 0)
	assert.NotEmpty(t, status.Timestamp)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodOptions, "/api/risk/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
