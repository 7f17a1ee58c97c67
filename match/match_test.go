package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalton/oguz-cgroups-exporter/config"
)

func strptr(s string) *string { return &s }

func TestGlobCgroupShellRewriteRejected(t *testing.T) {
	_, err := CompileCgroupRule(config.CgroupConfig{
		Match: config.CgroupMatch{
			Path: config.NameMatch{Glob: strptr("services.scope/*")},
			Rewrite: &config.Rewrite{
				Template: &config.Templated{
					Shell: &config.ShellTemplate{Command: "echo {x}"},
				},
			},
		},
	})
	require.Error(t, err)
}

func TestCgroupRemovePrefixIdentityWhenAbsent(t *testing.T) {
	rule, err := CompileCgroupRule(config.CgroupConfig{
		Match: config.CgroupMatch{
			Path:    config.NameMatch{Glob: strptr("*/foo")},
			Rewrite: &config.Rewrite{RemovePrefix: strptr("services.scope/")},
		},
	})
	require.NoError(t, err)

	matched, name, err := rule.TestAndRewrite(context.Background(), "services.scope/foo", nil)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "foo", name)

	matched, name, err = rule.TestAndRewrite(context.Background(), "other.scope/foo", nil)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "other.scope/foo", name)
}

func TestCgroupRegexLiteralTemplateUsesCaptures(t *testing.T) {
	rule, err := CompileCgroupRule(config.CgroupConfig{
		Match: config.CgroupMatch{
			Path:    config.NameMatch{Regex: strptr(`^system\.slice/docker-(?P<containerId>\w+)\.scope$`)},
			Rewrite: &config.Rewrite{Template: &config.Templated{Name: strptr("{containerId}")}},
		},
	})
	require.NoError(t, err)

	matched, name, err := rule.TestAndRewrite(context.Background(), "system.slice/docker-abc123.scope", nil)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "abc123", name)
}

type fakeEvaluator struct {
	calls int
	out   string
	err   error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, commandTemplate string, vars map[string]string, _ config.Stream) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestCgroupShellRewriteDelegatesToEvaluator(t *testing.T) {
	rule, err := CompileCgroupRule(config.CgroupConfig{
		Match: config.CgroupMatch{
			Path: config.NameMatch{Regex: strptr(`^system\.slice/docker-(?P<containerId>\w+)\.scope$`)},
			Rewrite: &config.Rewrite{Template: &config.Templated{
				Shell: &config.ShellTemplate{Command: "echo {containerId}"},
			}},
		},
	})
	require.NoError(t, err)

	ev := &fakeEvaluator{out: "my-container"}
	matched, name, err := rule.TestAndRewrite(context.Background(), "system.slice/docker-abc.scope", ev)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "my-container", name)
	assert.Equal(t, 1, ev.calls)
}

func TestProcessGlobMatchReturnsTemplateUnexpanded(t *testing.T) {
	rule, err := CompileProcessRule(config.ProcessConfig{
		Match: config.ProcessMatch{
			Selector:     config.SelectorComm,
			Matcher:      config.NameMatch{Glob: strptr("firefox")},
			NameTemplate: "{comm}-literal",
		},
	})
	require.NoError(t, err)

	matched, name := rule.TestAndRender(ProcessCandidate{PID: 1, Comm: "firefox"})
	assert.True(t, matched)
	assert.Equal(t, "{comm}-literal", name)
}

func TestProcessRegexMatchExpandsCapturesAndContext(t *testing.T) {
	rule, err := CompileProcessRule(config.ProcessConfig{
		Match: config.ProcessMatch{
			Selector:     config.SelectorComm,
			Matcher:      config.NameMatch{Regex: strptr(`^(?P<name>firefox|chrome)$`)},
			NameTemplate: "{name}/{pid}",
		},
	})
	require.NoError(t, err)

	matched, name := rule.TestAndRender(ProcessCandidate{PID: 42, Comm: "firefox"})
	assert.True(t, matched)
	assert.Equal(t, "firefox/42", name)
}

func TestProcessRegexUndefinedPlaceholderLiteral(t *testing.T) {
	rule, err := CompileProcessRule(config.ProcessConfig{
		Match: config.ProcessMatch{
			Selector:     config.SelectorComm,
			Matcher:      config.NameMatch{Regex: strptr(`^firefox$`)},
			NameTemplate: "{undefinedVar}",
		},
	})
	require.NoError(t, err)

	matched, name := rule.TestAndRender(ProcessCandidate{Comm: "firefox"})
	assert.True(t, matched)
	assert.Equal(t, "{undefinedVar}", name)
}

func TestMetricsNamespaceDefaulting(t *testing.T) {
	cRule, err := CompileCgroupRule(config.CgroupConfig{
		Match: config.CgroupMatch{Path: config.NameMatch{Glob: strptr("*")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cgroup", cRule.Metrics.Namespace)

	pRule, err := CompileProcessRule(config.ProcessConfig{
		Match: config.ProcessMatch{Selector: config.SelectorComm, Matcher: config.NameMatch{Glob: strptr("*")}, NameTemplate: "{comm}"},
	})
	require.NoError(t, err)
	assert.Equal(t, "process", pRule.Metrics.Namespace)
}
