// Package configcell holds the exporter's single swappable rule set
// (C5): many scrape-time readers, one rare writer (C6's file watcher),
// with no reader-side locking.
package configcell

import (
	"sync/atomic"

	"github.com/jwalton/oguz-cgroups-exporter/match"
)

// Cell holds the currently-active compiled configuration. The zero
// value is not usable; build one with New.
type Cell struct {
	current atomic.Pointer[match.MatchableConfig]
}

// New builds a Cell already holding initial.
func New(initial *match.MatchableConfig) *Cell {
	c := &Cell{}
	c.current.Store(initial)
	return c
}

// Load returns the currently-active configuration. The returned pointer
// is safe to use for an entire scrape: a concurrent Update never
// mutates it, it only swaps the Cell's reference to a new one.
func (c *Cell) Load() *match.MatchableConfig {
	return c.current.Load()
}

// Update replaces the active configuration. Scrapes already holding an
// older snapshot from Load continue against it to completion.
func (c *Cell) Update(next *match.MatchableConfig) {
	c.current.Store(next)
}
