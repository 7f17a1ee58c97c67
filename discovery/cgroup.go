// Package discovery implements the exporter's two scrape-time
// collaborators: CgroupDiscovery (C3), which fans out one worker per
// cgroup rule behind a bounded semaphore, and ProcDiscovery (C4), a
// single worker that enumerates every process once and tests it against
// every rule.
package discovery

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/jwalton/oguz-cgroups-exporter/cgroupfs"
	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
	"github.com/jwalton/oguz-cgroups-exporter/match"
	"github.com/jwalton/oguz-cgroups-exporter/render"
)

// CgroupDiscovery runs the compiled cgroup rules against the cgroup
// filesystem, one blocking worker per rule, bounded by a semaphore.
type CgroupDiscovery struct {
	Root        string
	Concurrency int64
	Evaluator   match.Evaluator
	Log         *logging.Logger
}

// NewCgroupDiscovery builds a CgroupDiscovery. root is normally
// cgroupfs.DefaultRoot; concurrency <= 0 floors to 1.
func NewCgroupDiscovery(root string, concurrency int64, ev match.Evaluator, log *logging.Logger) *CgroupDiscovery {
	if root == "" {
		root = cgroupfs.DefaultRoot
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &CgroupDiscovery{Root: root, Concurrency: concurrency, Evaluator: ev, Log: log}
}

// Run launches one worker per rule and returns a channel of MatchGroups,
// closed once every rule has finished. Its capacity equals the
// configured permit count, per §4.3.
func (d *CgroupDiscovery) Run(ctx context.Context, rules []*match.CgroupRule) <-chan render.MatchGroup[CgroupMetrics] {
	out := make(chan render.MatchGroup[CgroupMetrics], d.Concurrency)
	sem := semaphore.NewWeighted(d.Concurrency)

	var wg sync.WaitGroup
	for _, rule := range rules {
		rule := rule
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			d.runRule(ctx, rule, out)
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (d *CgroupDiscovery) runRule(ctx context.Context, rule *match.CgroupRule, out chan<- render.MatchGroup[CgroupMetrics]) {
	explorer := cgroupfs.NewExplorer(d.Root, func(rel string) bool {
		ok, _ := rule.Matcher.Match(rel)
		return ok
	})

	cgroups, err := explorer.Walk()
	if err != nil {
		d.Log.Error("msg", "cgroup enumeration failed for rule", "err", err)
		return
	}

	items := make([]CgroupMetrics, 0, len(cgroups))
	for _, cg := range cgroups {
		matched, name, err := rule.TestAndRewrite(ctx, cg.RelPath, d.Evaluator)
		if err != nil {
			d.Log.Debug("msg", "cgroup rewrite failed, skipping", "cgroup", cg.RelPath, "err", err)
			continue
		}
		if !matched {
			continue
		}
		counters, err := cg.Counters(d.Root)
		if err != nil {
			d.Log.Debug("msg", "cgroup read failed, skipping", "cgroup", cg.RelPath, "err", err)
			continue
		}
		items = append(items, CgroupMetrics{DisplayName: name, Counters: counters})
	}

	select {
	case out <- render.MatchGroup[CgroupMetrics]{
		Items:     items,
		Namespace: rule.Metrics.Namespace,
		NameLabel: nameLabel(rule.Metrics),
	}:
	case <-ctx.Done():
	}
}

func nameLabel(mc config.MetricsConfig) string {
	if mc.LabelMap != nil {
		if v, ok := mc.LabelMap["name"]; ok && v != "" {
			return v
		}
	}
	return "name"
}
