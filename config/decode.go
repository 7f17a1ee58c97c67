package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Load reads and parses the config file at path, dispatching on its
// extension: `.json` decodes as JSON, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML document into a Config.
func ParseYAML(data []byte) (*Config, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	norm, err := normalizeYAML(raw)
	if err != nil {
		return nil, err
	}
	root, err := asObject(norm, "config")
	if err != nil {
		return nil, err
	}
	return parseConfig(root)
}

// ParseJSON parses a JSON document into a Config.
func ParseJSON(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	root, err := asObject(raw, "config")
	if err != nil {
		return nil, err
	}
	return parseConfig(root)
}

// normalizeYAML recursively rewrites the map[interface{}]interface{} trees
// gopkg.in/yaml.v2 produces into map[string]interface{}, so the rest of
// this package can treat YAML and JSON documents identically.
func normalizeYAML(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v in yaml mapping", k)
			}
			nv, err := normalizeYAML(vv)
			if err != nil {
				return nil, err
			}
			out[ks] = nv
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			nv, err := normalizeYAML(vv)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			nv, err := normalizeYAML(vv)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

func asObject(v interface{}, what string) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping", what)
	}
	return m, nil
}

func asList(v interface{}, what string) ([]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	l, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a list", what)
	}
	return l, nil
}

// rejectUnknownKeys enforces the deny-unknown-fields decision (see
// DESIGN.md) uniformly across all three rule schemas.
func rejectUnknownKeys(m map[string]interface{}, allowed []string, what string) error {
	allow := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allow[a] = struct{}{}
	}
	var extra []string
	for k := range m {
		if _, ok := allow[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("%s: unknown field(s) %s", what, strings.Join(extra, ", "))
	}
	return nil
}

func parseConfig(root map[string]interface{}) (*Config, error) {
	if err := rejectUnknownKeys(root, []string{"cgroups", "processes", "shell"}, "config"); err != nil {
		return nil, err
	}

	cgroupsRaw, err := asList(root["cgroups"], "cgroups")
	if err != nil {
		return nil, err
	}
	cgroups := make([]CgroupConfig, 0, len(cgroupsRaw))
	for i, item := range cgroupsRaw {
		obj, err := asObject(item, fmt.Sprintf("cgroups[%d]", i))
		if err != nil {
			return nil, err
		}
		cc, err := parseCgroupConfig(obj)
		if err != nil {
			return nil, fmt.Errorf("cgroups[%d]: %w", i, err)
		}
		cgroups = append(cgroups, cc)
	}

	processesRaw, err := asList(root["processes"], "processes")
	if err != nil {
		return nil, err
	}
	processes := make([]ProcessConfig, 0, len(processesRaw))
	for i, item := range processesRaw {
		obj, err := asObject(item, fmt.Sprintf("processes[%d]", i))
		if err != nil {
			return nil, err
		}
		pc, err := parseProcessConfig(obj)
		if err != nil {
			return nil, fmt.Errorf("processes[%d]: %w", i, err)
		}
		processes = append(processes, pc)
	}

	shell, err := parseShellConfig(root["shell"])
	if err != nil {
		return nil, fmt.Errorf("shell: %w", err)
	}

	return &Config{Cgroups: cgroups, Processes: processes, Shell: shell}, nil
}

func parseCgroupConfig(obj map[string]interface{}) (CgroupConfig, error) {
	if err := rejectUnknownKeys(obj, []string{"match", "metrics"}, "cgroup rule"); err != nil {
		return CgroupConfig{}, err
	}
	matchRaw, err := asObject(obj["match"], "match")
	if err != nil {
		return CgroupConfig{}, err
	}
	cm, err := parseCgroupMatch(matchRaw)
	if err != nil {
		return CgroupConfig{}, err
	}
	mc, err := parseMetricsConfig(obj["metrics"])
	if err != nil {
		return CgroupConfig{}, err
	}
	return CgroupConfig{Match: cm, Metrics: mc}, nil
}

func parseCgroupMatch(obj map[string]interface{}) (CgroupMatch, error) {
	if err := rejectUnknownKeys(obj, []string{"path", "removePrefix", "name"}, "cgroup match"); err != nil {
		return CgroupMatch{}, err
	}
	pathRaw, ok := obj["path"]
	if !ok {
		return CgroupMatch{}, fmt.Errorf("cgroup match missing %q", "path")
	}
	nm, err := parseNameMatch(pathRaw)
	if err != nil {
		return CgroupMatch{}, fmt.Errorf("path: %w", err)
	}

	_, hasPrefix := obj["removePrefix"]
	_, hasName := obj["name"]
	if hasPrefix && hasName {
		return CgroupMatch{}, fmt.Errorf("cgroup match cannot set both %q and %q", "removePrefix", "name")
	}

	var rewrite *Rewrite
	switch {
	case hasPrefix:
		prefix, ok := obj["removePrefix"].(string)
		if !ok {
			return CgroupMatch{}, fmt.Errorf("removePrefix must be a string")
		}
		rewrite = &Rewrite{RemovePrefix: &prefix}
	case hasName:
		tpl, err := parseTemplated(obj["name"])
		if err != nil {
			return CgroupMatch{}, fmt.Errorf("name: %w", err)
		}
		rewrite = &Rewrite{Template: &tpl}
	}

	return CgroupMatch{Path: nm, Rewrite: rewrite}, nil
}

func parseNameMatch(v interface{}) (NameMatch, error) {
	switch val := v.(type) {
	case string:
		return NameMatch{Glob: &val}, nil
	case map[string]interface{}:
		if err := rejectUnknownKeys(val, []string{"regex"}, "regex matcher"); err != nil {
			return NameMatch{}, err
		}
		r, ok := val["regex"].(string)
		if !ok {
			return NameMatch{}, fmt.Errorf("regex matcher missing string %q", "regex")
		}
		return NameMatch{Regex: &r}, nil
	default:
		return NameMatch{}, fmt.Errorf("match value must be a glob string or {regex: ...}")
	}
}

func parseTemplated(v interface{}) (Templated, error) {
	switch val := v.(type) {
	case string:
		return Templated{Name: &val}, nil
	case map[string]interface{}:
		if err := rejectUnknownKeys(val, []string{"shell", "output"}, "shell template"); err != nil {
			return Templated{}, err
		}
		cmd, ok := val["shell"].(string)
		if !ok {
			return Templated{}, fmt.Errorf("shell template missing string %q", "shell")
		}
		stream := StreamStdout
		if outRaw, ok := val["output"]; ok {
			outStr, ok := outRaw.(string)
			if !ok {
				return Templated{}, fmt.Errorf("output must be a string")
			}
			switch outStr {
			case "stdout":
				stream = StreamStdout
			case "stderr":
				stream = StreamStderr
			default:
				return Templated{}, fmt.Errorf("output must be %q or %q, got %q", "stdout", "stderr", outStr)
			}
		}
		return Templated{Shell: &ShellTemplate{Command: cmd, Output: stream}}, nil
	default:
		return Templated{}, fmt.Errorf("name must be a template string or {shell: ..., output: ...}")
	}
}

var processSelectorKeys = map[string]ProcessSelector{
	"exe":     SelectorExe,
	"exeBase": SelectorExeBase,
	"comm":    SelectorComm,
	"cmdline": SelectorCmdline,
}

func parseProcessConfig(obj map[string]interface{}) (ProcessConfig, error) {
	if err := rejectUnknownKeys(obj, []string{"match", "metrics"}, "process rule"); err != nil {
		return ProcessConfig{}, err
	}
	matchRaw, err := asObject(obj["match"], "match")
	if err != nil {
		return ProcessConfig{}, err
	}
	pm, err := parseProcessMatch(matchRaw)
	if err != nil {
		return ProcessConfig{}, err
	}
	mc, err := parseMetricsConfig(obj["metrics"])
	if err != nil {
		return ProcessConfig{}, err
	}
	return ProcessConfig{Match: pm, Metrics: mc}, nil
}

func parseProcessMatch(obj map[string]interface{}) (ProcessMatch, error) {
	var selectorKey string
	for k := range obj {
		if k == "name" {
			continue
		}
		if _, ok := processSelectorKeys[k]; !ok {
			return ProcessMatch{}, fmt.Errorf("process match: unknown field %q", k)
		}
		if selectorKey != "" {
			return ProcessMatch{}, fmt.Errorf("process match: multiple selectors %q and %q", selectorKey, k)
		}
		selectorKey = k
	}
	if selectorKey == "" {
		return ProcessMatch{}, fmt.Errorf("process match: missing a selector (one of exe, exeBase, comm, cmdline)")
	}
	nameTpl, ok := obj["name"].(string)
	if !ok {
		return ProcessMatch{}, fmt.Errorf("process match: missing string %q", "name")
	}
	nm, err := parseNameMatch(obj[selectorKey])
	if err != nil {
		return ProcessMatch{}, fmt.Errorf("%s: %w", selectorKey, err)
	}
	return ProcessMatch{
		Selector:     processSelectorKeys[selectorKey],
		Matcher:      nm,
		NameTemplate: nameTpl,
	}, nil
}

func parseMetricsConfig(v interface{}) (MetricsConfig, error) {
	if v == nil {
		return MetricsConfig{LabelMap: DefaultLabelMap()}, nil
	}
	obj, err := asObject(v, "metrics")
	if err != nil {
		return MetricsConfig{}, err
	}
	if err := rejectUnknownKeys(obj, []string{"labelMap", "namespace"}, "metrics"); err != nil {
		return MetricsConfig{}, err
	}
	labelMap := DefaultLabelMap()
	if raw, ok := obj["labelMap"]; ok {
		lm, err := asObject(raw, "labelMap")
		if err != nil {
			return MetricsConfig{}, err
		}
		labelMap = make(map[string]string, len(lm))
		for k, vv := range lm {
			s, ok := vv.(string)
			if !ok {
				return MetricsConfig{}, fmt.Errorf("labelMap[%q] must be a string", k)
			}
			labelMap[k] = s
		}
	}
	namespace := ""
	if raw, ok := obj["namespace"]; ok {
		s, ok := raw.(string)
		if !ok {
			return MetricsConfig{}, fmt.Errorf("namespace must be a string")
		}
		namespace = s
	}
	return MetricsConfig{LabelMap: labelMap, Namespace: namespace}, nil
}

func parseShellConfig(v interface{}) (ShellCommandsConfig, error) {
	if v == nil {
		return ShellCommandsConfig{}, nil
	}
	obj, err := asObject(v, "shell")
	if err != nil {
		return ShellCommandsConfig{}, err
	}
	if err := rejectUnknownKeys(obj, []string{"cacheSize"}, "shell"); err != nil {
		return ShellCommandsConfig{}, err
	}
	size := 0
	if raw, ok := obj["cacheSize"]; ok {
		n, err := toInt(raw)
		if err != nil {
			return ShellCommandsConfig{}, fmt.Errorf("cacheSize: %w", err)
		}
		size = n
	}
	return ShellCommandsConfig{CacheSize: size}, nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
