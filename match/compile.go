package match

import (
	"fmt"

	"github.com/jwalton/oguz-cgroups-exporter/config"
)

// MatchableConfig is the fully compiled rule set: the unit C5's
// ConfigCell holds and swaps.
type MatchableConfig struct {
	Cgroups        []*CgroupRule
	Processes      []*ProcessRule
	ShellCacheSize int
}

// Compile compiles a parsed config.Config into a MatchableConfig. A
// single bad rule fails the whole load, named by its index, per §4.1's
// "invalid regex or glob fails the whole config load with a precise
// error naming the rule".
func Compile(cfg *config.Config) (*MatchableConfig, error) {
	cgroups := make([]*CgroupRule, 0, len(cfg.Cgroups))
	for i, raw := range cfg.Cgroups {
		rule, err := CompileCgroupRule(raw)
		if err != nil {
			return nil, fmt.Errorf("cgroups[%d]: %w", i, err)
		}
		cgroups = append(cgroups, rule)
	}

	processes := make([]*ProcessRule, 0, len(cfg.Processes))
	for i, raw := range cfg.Processes {
		rule, err := CompileProcessRule(raw)
		if err != nil {
			return nil, fmt.Errorf("processes[%d]: %w", i, err)
		}
		processes = append(processes, rule)
	}

	return &MatchableConfig{
		Cgroups:        cgroups,
		Processes:      processes,
		ShellCacheSize: cfg.Shell.CacheSize,
	}, nil
}
