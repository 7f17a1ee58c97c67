// Package server is the exporter's HTTPServer collaborator (C8): it
// exposes GET / and GET /metrics, orchestrating one scrape per request
// by merging CgroupDiscovery and ProcDiscovery output into the Renderer
// behind a per-request timeout.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	verCollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalton/oguz-cgroups-exporter/configcell"
	"github.com/jwalton/oguz-cgroups-exporter/discovery"
	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
	"github.com/jwalton/oguz-cgroups-exporter/render"
)

const (
	metricsPath     = "/metrics"
	selfMetricsPath = "/self/metrics"
	// ScrapeTimeout bounds how long one scrape is allowed to run.
	ScrapeTimeout = 10 * time.Second
)

// Server wires the scrape pipeline to an HTTP mux.
type Server struct {
	Cell            *configcell.Cell
	CgroupDiscovery *discovery.CgroupDiscovery
	ProcDiscovery   *discovery.ProcDiscovery
	Log             *logging.Logger
	ScrapeTimeout   time.Duration
}

// New builds a Server. A zero ScrapeTimeout is replaced by the package
// default.
func New(cell *configcell.Cell, cd *discovery.CgroupDiscovery, pd *discovery.ProcDiscovery, log *logging.Logger) *Server {
	return &Server{Cell: cell, CgroupDiscovery: cd, ProcDiscovery: pd, Log: log, ScrapeTimeout: ScrapeTimeout}
}

// Handler builds the exporter's full HTTP mux. Self-instrumentation
// (Go runtime/process metrics) lives under selfMetricsPath rather than
// metricsPath, since /metrics is reserved for the custom-rendered
// cgroup/process data (§6 of the spec's HTTP surface).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.Handle(metricsPath, gzhttp.GzipHandler(http.HandlerFunc(s.handleMetrics)))
	mux.Handle(selfMetricsPath, selfInstrumentationHandler())
	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_ = homepageTmpl.Execute(w, homepageData{MetricsPath: metricsPath})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	timeout := s.ScrapeTimeout
	if timeout <= 0 {
		timeout = ScrapeTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	buf, err := s.scrape(ctx)
	if err != nil {
		s.Log.Error("msg", "scrape failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write(buf)
}

// scrape reads the active config, launches C3 and C4, and merges their
// output into a fresh Renderer until both streams are drained or the
// context is cancelled.
func (s *Server) scrape(ctx context.Context) ([]byte, error) {
	cfg := s.Cell.Load()

	cgroupCh := s.CgroupDiscovery.Run(ctx, cfg.Cgroups)
	procCh := s.ProcDiscovery.Run(ctx, cfg.Processes)
	r := render.New()

	for cgroupCh != nil || procCh != nil {
		select {
		case mg, ok := <-cgroupCh:
			if !ok {
				cgroupCh = nil
				continue
			}
			render.Render(r, mg)

		case mg, ok := <-procCh:
			if !ok {
				procCh = nil
				continue
			}
			render.Render(r, mg)

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return r.Finish()
}

func selfInstrumentationHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(verCollector.NewCollector("cgroups_exporter"))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
