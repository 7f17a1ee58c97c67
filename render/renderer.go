package render

import (
	"bytes"
	"fmt"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Renderer accumulates MatchGroups across one scrape and finalizes them
// into a single Prometheus text-exposition buffer. Not safe for
// concurrent use: one Renderer per scrape, fed sequentially as groups
// arrive from the merge loop in package server.
type Renderer struct {
	namespaces     map[string]*namespaceBuilder
	namespaceOrder []string
}

// New returns an empty Renderer.
func New() *Renderer {
	return &Renderer{namespaces: make(map[string]*namespaceBuilder)}
}

func (r *Renderer) namespace(name string) *namespaceBuilder {
	ns, ok := r.namespaces[name]
	if !ok {
		ns = &namespaceBuilder{families: make(map[string]*dto.MetricFamily)}
		r.namespaces[name] = ns
		r.namespaceOrder = append(r.namespaceOrder, name)
	}
	return ns
}

// Render appends every item of mg into its namespace's sub-serializer.
func Render[T Emitter](r *Renderer, mg MatchGroup[T]) {
	ns := r.namespace(mg.Namespace)
	nameLabel := mg.nameLabel()
	for _, item := range mg.Items {
		common := map[string]string{nameLabel: item.Name()}
		for k, v := range item.Labels() {
			common[k] = v
		}
		for _, s := range item.Samples() {
			famName := mg.Namespace + "_" + s.Family
			labels := make(map[string]string, len(common)+len(s.Labels))
			for k, v := range common {
				labels[k] = v
			}
			for k, v := range s.Labels {
				labels[k] = v
			}
			ns.addSample(famName, s.Help, s.Type, labels, s.Value)
		}
	}
}

// Finish serializes every namespace's accumulated families, in the
// order namespaces were first touched, separated by a blank line, and
// returns the finished buffer.
func (r *Renderer) Finish() ([]byte, error) {
	var buf bytes.Buffer
	for i, name := range r.namespaceOrder {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := r.namespaces[name].encode(&buf); err != nil {
			return nil, fmt.Errorf("render: encode namespace %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// namespaceBuilder accumulates metric families for one namespace,
// preserving family insertion order so samples of the same family stay
// contiguous and the overall output order matches first-seen order.
type namespaceBuilder struct {
	families map[string]*dto.MetricFamily
	order    []string
}

func (ns *namespaceBuilder) addSample(famName, help string, typ dto.MetricType, labels map[string]string, value float64) {
	fam, ok := ns.families[famName]
	if !ok {
		name := famName
		fam = &dto.MetricFamily{
			Name: &name,
			Help: strPtr(help),
			Type: typ.Enum(),
		}
		ns.families[famName] = fam
		ns.order = append(ns.order, famName)
	}

	metric := &dto.Metric{Label: labelPairs(labels)}
	switch typ {
	case dto.MetricType_COUNTER:
		metric.Counter = &dto.Counter{Value: float64Ptr(value)}
	default:
		metric.Gauge = &dto.Gauge{Value: float64Ptr(value)}
	}
	fam.Metric = append(fam.Metric, metric)
}

func (ns *namespaceBuilder) encode(buf *bytes.Buffer) error {
	enc := expfmt.NewEncoder(buf, expfmt.FmtText)
	for _, name := range ns.order {
		if err := enc.Encode(ns.families[name]); err != nil {
			return err
		}
	}
	return nil
}

func labelPairs(labels map[string]string) []*dto.LabelPair {
	if len(labels) == 0 {
		return nil
	}
	pairs := make([]*dto.LabelPair, 0, len(labels))
	for k, v := range labels {
		k, v := k, v
		pairs = append(pairs, &dto.LabelPair{Name: &k, Value: &v})
	}
	return pairs
}

func strPtr(s string) *string        { return &s }
func float64Ptr(f float64) *float64 { return &f }
