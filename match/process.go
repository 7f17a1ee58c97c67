package match

import (
	"strconv"

	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/internal/tmplexpand"
)

// ProcessCandidate is the subset of a process snapshot the matcher needs
// to test a rule and render a name. It's a plain struct rather than an
// interface into procreader.Proc so this package stays independent of
// how processes are actually read.
type ProcessCandidate struct {
	PID     int
	Exe     string
	ExeBase string
	Comm    string
	Cmdline string
}

func (c ProcessCandidate) selectString(sel config.ProcessSelector) string {
	switch sel {
	case config.SelectorExe:
		return c.Exe
	case config.SelectorExeBase:
		return c.ExeBase
	case config.SelectorComm:
		return c.Comm
	case config.SelectorCmdline:
		return c.Cmdline
	default:
		return ""
	}
}

// ProcessRule is a compiled process-matching rule.
type ProcessRule struct {
	Selector     config.ProcessSelector
	Matcher      NameMatch
	NameTemplate string
	Metrics      config.MetricsConfig
}

// CompileProcessRule compiles a raw process rule, defaulting its metrics
// namespace to "process".
func CompileProcessRule(raw config.ProcessConfig) (*ProcessRule, error) {
	nm, err := CompileNameMatch(raw.Match.Matcher)
	if err != nil {
		return nil, err
	}
	metrics := raw.Metrics
	if metrics.Namespace == "" {
		metrics.Namespace = "process"
	}
	return &ProcessRule{
		Selector:     raw.Match.Selector,
		Matcher:      nm,
		NameTemplate: raw.Match.NameTemplate,
		Metrics:      metrics,
	}, nil
}

// TestAndRender tests candidate against the rule. On a glob match the
// raw name template is returned unexpanded; on a regex match, `{var}`
// placeholders are expanded from pid/exe/comm plus any named captures.
func (r *ProcessRule) TestAndRender(c ProcessCandidate) (matched bool, name string) {
	candidate := c.selectString(r.Selector)
	ok, captures := r.Matcher.Match(candidate)
	if !ok {
		return false, ""
	}
	if !r.Matcher.IsRegex() {
		return true, r.NameTemplate
	}
	vars := make(map[string]string, len(captures)+3)
	for k, v := range captures {
		vars[k] = v
	}
	vars["pid"] = strconv.Itoa(c.PID)
	vars["exe"] = c.Exe
	vars["comm"] = c.Comm
	return true, tmplexpand.Expand(r.NameTemplate, vars)
}
