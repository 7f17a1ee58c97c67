package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/match"
	"github.com/jwalton/oguz-cgroups-exporter/procreader"
	"github.com/jwalton/oguz-cgroups-exporter/render"
)

func matchAllProcessRule(t *testing.T, selector config.ProcessSelector, nameTemplate string) *match.ProcessRule {
	t.Helper()
	rule, err := match.CompileProcessRule(config.ProcessConfig{
		Match: config.ProcessMatch{
			Selector:     selector,
			Matcher:      config.NameMatch{Glob: strptr("*")},
			NameTemplate: nameTemplate,
		},
	})
	require.NoError(t, err)
	return rule
}

func TestProcDiscoveryRunGroupsAllProcessesByName(t *testing.T) {
	reader, err := procreader.NewReader("/proc")
	require.NoError(t, err)

	rule := matchAllProcessRule(t, config.SelectorComm, "all")
	d := NewProcDiscovery(reader, testLogger())

	ch := d.Run(context.Background(), []*match.ProcessRule{rule})
	var groups []render.MatchGroup[ProcessMetrics]
	for mg := range ch {
		groups = append(groups, mg)
	}
	require.Len(t, groups, 1)

	mg := groups[0]
	assert.Equal(t, "process", mg.Namespace)
	require.Len(t, mg.Items, 1)
	assert.Equal(t, "all", mg.Items[0].Name())
	assert.Greater(t, mg.Items[0].NumProcs, 0)
	assert.GreaterOrEqual(t, mg.Items[0].OpenFDs, float64(0))
}

func TestProcDiscoveryRunEmitsOneGroupPerMatchedRule(t *testing.T) {
	reader, err := procreader.NewReader("/proc")
	require.NoError(t, err)

	ruleA := matchAllProcessRule(t, config.SelectorComm, "group-a")
	ruleB := matchAllProcessRule(t, config.SelectorComm, "group-b")
	d := NewProcDiscovery(reader, testLogger())

	ch := d.Run(context.Background(), []*match.ProcessRule{ruleA, ruleB})
	names := map[string]bool{}
	for mg := range ch {
		for _, item := range mg.Items {
			names[item.Name()] = true
		}
	}
	assert.True(t, names["group-a"])
	assert.True(t, names["group-b"])
}

func TestProcDiscoveryRunNoRulesProducesNoGroups(t *testing.T) {
	reader, err := procreader.NewReader("/proc")
	require.NoError(t, err)

	d := NewProcDiscovery(reader, testLogger())
	ch := d.Run(context.Background(), nil)
	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 0, count)
}
