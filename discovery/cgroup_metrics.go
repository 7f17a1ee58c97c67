package discovery

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/jwalton/oguz-cgroups-exporter/cgroupfs"
	"github.com/jwalton/oguz-cgroups-exporter/render"
)

// CgroupMetrics is one discovered cgroup's resource counters, ready to
// render. Implements render.Emitter.
type CgroupMetrics struct {
	DisplayName string
	Counters    cgroupfs.Counters
}

func (m CgroupMetrics) Name() string              { return m.DisplayName }
func (m CgroupMetrics) Labels() map[string]string { return nil }

func (m CgroupMetrics) Samples() []render.Sample {
	samples := []render.Sample{
		{
			Family: "cpu_usage_seconds_total",
			Help:   "Cumulative CPU time consumed by the cgroup.",
			Type:   dto.MetricType_COUNTER,
			Value:  m.Counters.CPUUsageSeconds,
		},
		{
			Family: "memory_usage_bytes",
			Help:   "Current memory usage of the cgroup.",
			Type:   dto.MetricType_GAUGE,
			Value:  m.Counters.MemoryUsageBytes,
		},
		{
			Family: "memory_failcnt_total",
			Help:   "Count of memory limit breaches (v1 failcnt; v2 memory.events oom count).",
			Type:   dto.MetricType_COUNTER,
			Value:  m.Counters.MemoryFailCount,
		},
	}
	if m.Counters.MemoryLimitSet {
		samples = append(samples, render.Sample{
			Family: "memory_limit_bytes",
			Help:   "Configured memory limit of the cgroup.",
			Type:   dto.MetricType_GAUGE,
			Value:  m.Counters.MemoryLimitBytes,
		})
	}
	return samples
}
