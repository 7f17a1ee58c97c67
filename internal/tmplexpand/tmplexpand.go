// Package tmplexpand expands `{var}`-style placeholders against a
// variable map. It's deliberately distinct from text/template: the name
// templates and shell command templates in this exporter's config use
// single-brace placeholders (`{pid}`, `{containerId}`), and an undefined
// placeholder must render literally rather than error, which
// text/template doesn't support without a custom FuncMap trick.
package tmplexpand

import "regexp"

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand substitutes every `{name}` occurrence found as a key in vars.
// Placeholders with no matching key are left untouched.
func Expand(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// ExpandFunc is like Expand but calls transform on each substituted value
// before it's placed into the result (used by the shell evaluator to
// shell-quote values as they're substituted, not the whole rendered
// string).
func ExpandFunc(tpl string, vars map[string]string, transform func(string) string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := vars[name]; ok {
			if transform != nil {
				return transform(v)
			}
			return v
		}
		return match
	})
}
