// Package config loads and decodes the exporter's YAML/JSON config file
// into its semantic model. It does not compile matchers (glob/regex
// compilation, and the Glob+ShellTemplate incompatibility check, live in
// the match package) — this package's job stops at "is this a
// well-formed, fully-keyed document".
//
//go:generate go run ../cmd/genschema -out ../docs/config.schema.json
package config

// Config is the top-level document.
type Config struct {
	Cgroups   []CgroupConfig
	Processes []ProcessConfig
	Shell     ShellCommandsConfig
}

// NameMatch is either a glob pattern or a regex pattern. Exactly one of
// Glob/Regex is set.
type NameMatch struct {
	Glob  *string
	Regex *string
}

// Stream selects which output stream of a shell command becomes the
// rewritten name.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// ShellTemplate is the `name: {shell: ..., output: ...}` rewrite variant.
type ShellTemplate struct {
	Command string
	Output  Stream
}

// Templated is either a literal (possibly `{var}`-templated) name or a
// shell command whose output becomes the name.
type Templated struct {
	Name  *string
	Shell *ShellTemplate
}

// Rewrite is the cgroup name rewrite rule: strip a literal prefix, or
// compute a new name from a Templated. Nil means "no rewrite".
type Rewrite struct {
	RemovePrefix *string
	Template     *Templated
}

// CgroupMatch is the `match` block of a cgroup rule.
type CgroupMatch struct {
	Path    NameMatch
	Rewrite *Rewrite
}

// MetricsConfig controls label naming and the metric namespace prefix.
// Namespace == "" means "use the component default" (applied at compile
// time, since the default differs between cgroup and process rules).
type MetricsConfig struct {
	LabelMap  map[string]string
	Namespace string
}

// CgroupConfig is one entry of the top-level `cgroups` list.
type CgroupConfig struct {
	Match   CgroupMatch
	Metrics MetricsConfig
}

// ProcessSelector picks which candidate string a process rule matches
// against.
type ProcessSelector int

const (
	SelectorExe ProcessSelector = iota
	SelectorExeBase
	SelectorComm
	SelectorCmdline
)

func (s ProcessSelector) String() string {
	switch s {
	case SelectorExe:
		return "exe"
	case SelectorExeBase:
		return "exeBase"
	case SelectorComm:
		return "comm"
	case SelectorCmdline:
		return "cmdline"
	default:
		return "unknown"
	}
}

// ProcessMatch is the `match` block of a process rule.
type ProcessMatch struct {
	Selector     ProcessSelector
	Matcher      NameMatch
	NameTemplate string
}

// ProcessConfig is one entry of the top-level `processes` list.
type ProcessConfig struct {
	Match   ProcessMatch
	Metrics MetricsConfig
}

// ShellCommandsConfig configures the shell evaluator's memoisation cache.
type ShellCommandsConfig struct {
	// CacheSize <= 0 means "unset"; the shell evaluator floors it to 100.
	CacheSize int
}

// DefaultLabelMap is applied whenever a rule's metrics block omits
// labelMap entirely.
func DefaultLabelMap() map[string]string {
	return map[string]string{"name": "name"}
}
