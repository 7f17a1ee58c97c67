package discovery

import (
	"context"

	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
	"github.com/jwalton/oguz-cgroups-exporter/match"
	"github.com/jwalton/oguz-cgroups-exporter/procreader"
	"github.com/jwalton/oguz-cgroups-exporter/render"
)

// ProcDiscovery is a single worker that enumerates every process once
// per scrape and tests it against every process rule — no first-match
// wins, so one process can land in several groups.
type ProcDiscovery struct {
	Reader *procreader.Reader
	Log    *logging.Logger
}

// NewProcDiscovery builds a ProcDiscovery reading through reader.
func NewProcDiscovery(reader *procreader.Reader, log *logging.Logger) *ProcDiscovery {
	return &ProcDiscovery{Reader: reader, Log: log}
}

type groupState struct {
	metrics config.MetricsConfig
	agg     ProcessMetrics
}

// Run scrapes in a background goroutine and returns a channel that
// yields one MatchGroup per rendered group name, closed once the
// enumeration and fold are complete.
func (d *ProcDiscovery) Run(ctx context.Context, rules []*match.ProcessRule) <-chan render.MatchGroup[ProcessMetrics] {
	out := make(chan render.MatchGroup[ProcessMetrics], 1)
	go func() {
		defer close(out)
		d.scrape(ctx, rules, out)
	}()
	return out
}

func (d *ProcDiscovery) scrape(ctx context.Context, rules []*match.ProcessRule, out chan<- render.MatchGroup[ProcessMetrics]) {
	raws, err := d.Reader.AllProcs()
	if err != nil {
		d.Log.Error("msg", "process enumeration failed", "err", err)
		return
	}

	groups := make(map[string]*groupState)

	for _, raw := range raws {
		p, err := d.Reader.Build(raw)
		if err != nil {
			d.Log.Trace("msg", "process read failed, skipping", "pid", raw.PID, "err", err)
			continue
		}

		candidate := match.ProcessCandidate{PID: p.PID, Exe: p.Exe, ExeBase: p.ExeBase, Comm: p.Comm, Cmdline: p.Cmdline}
		gathered := false

		for _, rule := range rules {
			matched, name := rule.TestAndRender(candidate)
			if !matched {
				continue
			}
			if !gathered {
				if err := p.GatherRemainingInfo(); err != nil {
					d.Log.Trace("msg", "process detail gather failed", "pid", p.PID, "err", err)
				}
				gathered = true
			}

			g, ok := groups[name]
			if !ok {
				g = &groupState{metrics: rule.Metrics}
				g.agg.GroupName = name
				groups[name] = g
			}
			addProc(&g.agg, p)
		}
	}

	for _, g := range groups {
		select {
		case out <- render.MatchGroup[ProcessMetrics]{
			Items:     []ProcessMetrics{g.agg},
			Namespace: g.metrics.Namespace,
			NameLabel: nameLabel(g.metrics),
		}:
		case <-ctx.Done():
			return
		}
	}
}
