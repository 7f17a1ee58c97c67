// Package render is the exporter's "Renderer" collaborator (C7): it
// turns matched groups of cgroup/process metrics into Prometheus text
// exposition, keeping each metric family's samples contiguous the way
// the format requires, grouped per namespace.
package render

import (
	dto "github.com/prometheus/client_model/go"
)

// Sample is one data point an Emitter contributes, named without its
// namespace prefix (the Renderer adds that).
type Sample struct {
	Family string
	Help   string
	Type   dto.MetricType
	Value  float64
	// Labels holds labels specific to this sample, e.g. {"mode": "user"}
	// for the split cpu_seconds_total metric. May be nil.
	Labels map[string]string
}

// Emitter is anything a MatchGroup can carry: a discovered cgroup or an
// aggregated process group.
type Emitter interface {
	// Name is the value placed under the remapped "name" label.
	Name() string
	// Labels are the common labels attached to every sample besides
	// the name label. May be nil.
	Labels() map[string]string
	// Samples are this item's metric readings.
	Samples() []Sample
}

// MatchGroup is the unit C3/C4 send downstream: a batch of same-kind
// items sharing one metrics configuration.
type MatchGroup[T Emitter] struct {
	Items     []T
	Namespace string
	// NameLabel is the output label key for the "name" value —
	// metrics_config.label_map["name"]; defaults to "name".
	NameLabel string
}

func (mg MatchGroup[T]) nameLabel() string {
	if mg.NameLabel == "" {
		return "name"
	}
	return mg.NameLabel
}
