package discovery

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/jwalton/oguz-cgroups-exporter/procreader"
	"github.com/jwalton/oguz-cgroups-exporter/render"
)

// ProcessMetrics is the aggregated view of every process that matched
// one rule under one rendered group name. Implements render.Emitter.
type ProcessMetrics struct {
	GroupName string

	NumProcs      int
	UserSeconds   float64
	SystemSeconds float64
	ResidentBytes float64
	VirtualBytes  float64
	ReadBytes     float64
	WriteBytes    float64
	OpenFDs       float64
}

func (m ProcessMetrics) Name() string              { return m.GroupName }
func (m ProcessMetrics) Labels() map[string]string { return nil }

func (m ProcessMetrics) Samples() []render.Sample {
	return []render.Sample{
		{Family: "num_procs", Help: "Number of processes in the group.", Type: dto.MetricType_GAUGE, Value: float64(m.NumProcs)},
		{Family: "cpu_seconds_total", Help: "Cumulative CPU time, summed over the group.", Type: dto.MetricType_COUNTER, Value: m.UserSeconds, Labels: map[string]string{"mode": "user"}},
		{Family: "cpu_seconds_total", Help: "Cumulative CPU time, summed over the group.", Type: dto.MetricType_COUNTER, Value: m.SystemSeconds, Labels: map[string]string{"mode": "system"}},
		{Family: "resident_memory_bytes", Help: "Resident memory, summed over the group.", Type: dto.MetricType_GAUGE, Value: m.ResidentBytes},
		{Family: "virtual_memory_bytes", Help: "Virtual memory, summed over the group.", Type: dto.MetricType_GAUGE, Value: m.VirtualBytes},
		{Family: "read_bytes_total", Help: "Bytes read from storage, summed over the group.", Type: dto.MetricType_COUNTER, Value: m.ReadBytes},
		{Family: "write_bytes_total", Help: "Bytes written to storage, summed over the group.", Type: dto.MetricType_COUNTER, Value: m.WriteBytes},
		{Family: "open_fds", Help: "Open file descriptors, summed over the group.", Type: dto.MetricType_GAUGE, Value: m.OpenFDs},
	}
}

func addProc(m *ProcessMetrics, p *procreader.Proc) {
	m.NumProcs++
	m.UserSeconds += p.UserSeconds
	m.SystemSeconds += p.SystemSeconds
	m.ResidentBytes += p.ResidentBytes
	m.VirtualBytes += p.VirtualBytes
	m.ReadBytes += p.ReadBytes
	m.WriteBytes += p.WriteBytes
	m.OpenFDs += p.OpenFDs
}
