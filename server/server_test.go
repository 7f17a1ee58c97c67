package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalton/oguz-cgroups-exporter/configcell"
	"github.com/jwalton/oguz-cgroups-exporter/discovery"
	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
	"github.com/jwalton/oguz-cgroups-exporter/match"
	"github.com/jwalton/oguz-cgroups-exporter/procreader"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cell := configcell.New(&match.MatchableConfig{})
	log := logging.New("pretty", logging.LevelError)
	cd := discovery.NewCgroupDiscovery(t.TempDir(), 2, nil, log)
	reader, err := procreader.NewReader("/proc")
	require.NoError(t, err)
	pd := discovery.NewProcDiscovery(reader, log)
	return New(cell, cd, pd, log)
}

func TestHomepageServesHTML(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/metrics")
}

func TestMetricsServesPrometheusTextWithEmptyConfig(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain; version=0.0.4")
}

func TestSelfMetricsServesGoRuntimeMetrics(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/self/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsGzipsWhenAcceptEncodingAllowsIt(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
