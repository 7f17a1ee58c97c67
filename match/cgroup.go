package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/internal/tmplexpand"
)

// Evaluator runs a shell-templated rewrite. shellrun.Evaluator satisfies
// this structurally; defining it here (rather than importing shellrun)
// keeps match free of a dependency on the shell execution machinery.
type Evaluator interface {
	Evaluate(ctx context.Context, commandTemplate string, vars map[string]string, stream config.Stream) (string, error)
}

// ShellTemplate is the compiled form of a `{shell: ..., output: ...}`
// rewrite.
type ShellTemplate struct {
	Command string
	Output  config.Stream
}

// Templated is the compiled form of a cgroup name rewrite template.
type Templated struct {
	Name  *string
	Shell *ShellTemplate
}

// Rewrite is the compiled form of a cgroup rule's rewrite.
type Rewrite struct {
	RemovePrefix *string
	Template     *Templated
}

// CgroupRule is a compiled cgroup-matching rule.
type CgroupRule struct {
	Matcher NameMatch
	Rewrite *Rewrite
	Metrics config.MetricsConfig
}

// CompileCgroupRule compiles a raw cgroup rule, defaulting its metrics
// namespace to "cgroup" and rejecting a Glob path combined with a shell
// rewrite (the shell path depends on regex captures that a glob can't
// produce).
func CompileCgroupRule(raw config.CgroupConfig) (*CgroupRule, error) {
	nm, err := CompileNameMatch(raw.Match.Path)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}

	var rewrite *Rewrite
	if raw.Match.Rewrite != nil {
		rw := raw.Match.Rewrite
		switch {
		case rw.RemovePrefix != nil:
			rewrite = &Rewrite{RemovePrefix: rw.RemovePrefix}
		case rw.Template != nil:
			if rw.Template.Shell != nil && !nm.IsRegex() {
				return nil, fmt.Errorf("shell rewrite requires a regex path matcher, not a glob")
			}
			tpl := &Templated{Name: rw.Template.Name}
			if rw.Template.Shell != nil {
				tpl.Shell = &ShellTemplate{
					Command: rw.Template.Shell.Command,
					Output:  rw.Template.Shell.Output,
				}
			}
			rewrite = &Rewrite{Template: tpl}
		}
	}

	metrics := raw.Metrics
	if metrics.Namespace == "" {
		metrics.Namespace = "cgroup"
	}

	return &CgroupRule{Matcher: nm, Rewrite: rewrite, Metrics: metrics}, nil
}

// TestAndRewrite tests path against the rule's matcher and, on a match,
// computes the display name per the rewrite rule. A nil Evaluator is
// only safe when the rule has no shell rewrite.
func (r *CgroupRule) TestAndRewrite(ctx context.Context, path string, ev Evaluator) (matched bool, name string, err error) {
	ok, captures := r.Matcher.Match(path)
	if !ok {
		return false, "", nil
	}
	if r.Rewrite == nil {
		return true, path, nil
	}
	if r.Rewrite.RemovePrefix != nil {
		prefix := *r.Rewrite.RemovePrefix
		if strings.HasPrefix(path, prefix) {
			return true, strings.TrimPrefix(path, prefix), nil
		}
		return true, path, nil
	}

	tpl := r.Rewrite.Template
	if tpl.Shell != nil {
		rendered, err := ev.Evaluate(ctx, tpl.Shell.Command, captures, tpl.Shell.Output)
		if err != nil {
			return true, "", err
		}
		return true, rendered, nil
	}
	return true, tmplexpand.Expand(*tpl.Name, captures), nil
}
