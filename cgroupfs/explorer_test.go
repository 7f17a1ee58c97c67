package cgroupfs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplorerWalkMatchesRelativePaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "services.scope", "foo"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "services.scope", "bar"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "other.scope", "baz"), 0o755))

	e := NewExplorer(root, func(rel string) bool {
		return strings.HasPrefix(rel, "services.scope/")
	})
	got, err := e.Walk()
	require.NoError(t, err)

	var rels []string
	for _, cg := range got {
		rels = append(rels, cg.RelPath)
	}
	sort.Strings(rels)
	assert.Equal(t, []string{"services.scope/bar", "services.scope/foo"}, rels)
}

func TestExplorerWalkSkipsUnreadableSubtrees(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))

	e := NewExplorer(filepath.Join(root, "does-not-exist"), func(string) bool { return true })
	got, err := e.Walk()
	// filepath.WalkDir's own root-stat error is reported to our callback
	// with err != nil, which we swallow; Walk itself still returns nil.
	require.NoError(t, err)
	assert.Empty(t, got)
}
