package render

import (
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmitter struct {
	name    string
	labels  map[string]string
	samples []Sample
}

func (f fakeEmitter) Name() string            { return f.name }
func (f fakeEmitter) Labels() map[string]string { return f.labels }
func (f fakeEmitter) Samples() []Sample       { return f.samples }

func TestRenderProducesContiguousFamilies(t *testing.T) {
	r := New()
	mg := MatchGroup[fakeEmitter]{
		Namespace: "cgroup",
		Items: []fakeEmitter{
			{name: "a.scope", samples: []Sample{
				{Family: "cpu_usage_seconds_total", Help: "cpu", Type: dto.MetricType_COUNTER, Value: 1.5},
				{Family: "memory_usage_bytes", Help: "mem", Type: dto.MetricType_GAUGE, Value: 100},
			}},
			{name: "b.scope", samples: []Sample{
				{Family: "cpu_usage_seconds_total", Help: "cpu", Type: dto.MetricType_COUNTER, Value: 2.5},
			}},
		},
	}
	Render(r, mg)

	out, err := r.Finish()
	require.NoError(t, err)
	text := string(out)

	cpuIdx := strings.Index(text, "cgroup_cpu_usage_seconds_total")
	memIdx := strings.Index(text, "cgroup_memory_usage_bytes")
	require.NotEqual(t, -1, cpuIdx)
	require.NotEqual(t, -1, memIdx)

	// Both cpu samples (a.scope and b.scope) must be contiguous: the
	// memory family must not interleave with them.
	lastCPULine := strings.LastIndex(text, "cgroup_cpu_usage_seconds_total")
	assert.True(t, memIdx > lastCPULine || memIdx < cpuIdx, "memory family interleaved with cpu family")
	assert.Contains(t, text, `name="a.scope"`)
	assert.Contains(t, text, `name="b.scope"`)
}

func TestRenderUsesRemappedNameLabel(t *testing.T) {
	r := New()
	mg := MatchGroup[fakeEmitter]{
		Namespace: "process",
		NameLabel: "groupname",
		Items: []fakeEmitter{
			{name: "nginx", samples: []Sample{{Family: "num_procs", Type: dto.MetricType_GAUGE, Value: 3}}},
		},
	}
	Render(r, mg)
	out, err := r.Finish()
	require.NoError(t, err)
	assert.Contains(t, string(out), `groupname="nginx"`)
}

func TestRenderMultipleNamespacesSeparatedByBlankLine(t *testing.T) {
	r := New()
	Render(r, MatchGroup[fakeEmitter]{
		Namespace: "cgroup",
		Items:     []fakeEmitter{{name: "x", samples: []Sample{{Family: "f", Type: dto.MetricType_GAUGE, Value: 1}}}},
	})
	Render(r, MatchGroup[fakeEmitter]{
		Namespace: "process",
		Items:     []fakeEmitter{{name: "y", samples: []Sample{{Family: "g", Type: dto.MetricType_GAUGE, Value: 2}}}},
	})
	out, err := r.Finish()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n\n")
}

func TestRenderSampleSpecificLabelsAttach(t *testing.T) {
	r := New()
	Render(r, MatchGroup[fakeEmitter]{
		Namespace: "process",
		Items: []fakeEmitter{
			{name: "nginx", samples: []Sample{
				{Family: "cpu_seconds_total", Type: dto.MetricType_COUNTER, Value: 1, Labels: map[string]string{"mode": "user"}},
				{Family: "cpu_seconds_total", Type: dto.MetricType_COUNTER, Value: 2, Labels: map[string]string{"mode": "system"}},
			}},
		},
	})
	out, err := r.Finish()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, `mode="user"`)
	assert.Contains(t, text, `mode="system"`)
}
