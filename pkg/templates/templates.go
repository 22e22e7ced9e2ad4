// Package templates renders notification templates. Placeholders use the
// {{key}} form and are substituted from a flat data map. Rendering never
// fails: unknown keys produce an empty string.
package templates

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes {{key}} placeholders from data.
func Render(tmpl string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.TrimSpace(strings.Trim(m, "{}"))
		return data[key]
	})
}

// Keys returns the distinct placeholder keys in a template, in first-seen
// order. Used by rule-save validation to warn on templates that reference
// fields the trigger never provides.
func Keys(tmpl string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}
