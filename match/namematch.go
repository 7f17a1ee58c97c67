// Package match compiles the declarative rule config into matchers, and
// implements the test-and-render (process) / test-and-rewrite (cgroup)
// logic that turns a raw kernel-discovered name into a metric group name.
package match

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"

	"github.com/jwalton/oguz-cgroups-exporter/config"
)

// NameMatch is a compiled glob or regex pattern.
type NameMatch struct {
	glob  glob.Glob
	regex *regexp.Regexp
}

// IsRegex reports whether this NameMatch is backed by a regex (as opposed
// to a glob) — cgroup rules need this to reject Glob+ShellTemplate
// combinations at compile time.
func (m NameMatch) IsRegex() bool { return m.regex != nil }

// CompileNameMatch compiles the raw config representation into a usable
// matcher. An invalid glob or regex is reported with enough context for
// the caller to prefix it with the offending rule's identity.
func CompileNameMatch(raw config.NameMatch) (NameMatch, error) {
	switch {
	case raw.Glob != nil:
		g, err := glob.Compile(*raw.Glob, '/')
		if err != nil {
			return NameMatch{}, fmt.Errorf("bad glob %q: %w", *raw.Glob, err)
		}
		return NameMatch{glob: g}, nil
	case raw.Regex != nil:
		re, err := regexp.Compile(*raw.Regex)
		if err != nil {
			return NameMatch{}, fmt.Errorf("bad regex %q: %w", *raw.Regex, err)
		}
		return NameMatch{regex: re}, nil
	default:
		return NameMatch{}, fmt.Errorf("name match has neither a glob nor a regex")
	}
}

// Match tests candidate against the pattern. When backed by a regex, the
// named capture groups (if the match succeeds) are returned in captures;
// a glob match always returns a nil capture map.
func (m NameMatch) Match(candidate string) (ok bool, captures map[string]string) {
	if m.glob != nil {
		return m.glob.Match(candidate), nil
	}
	sub := m.regex.FindStringSubmatch(candidate)
	if sub == nil {
		return false, nil
	}
	names := m.regex.SubexpNames()
	caps := make(map[string]string, len(names))
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		caps[name] = sub[i]
	}
	return true, caps
}
