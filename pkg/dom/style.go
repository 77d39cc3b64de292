package dom

import (
	"strings"
)

// Style returns an inline style property, or "".
func (e *Element) Style(prop string) string {
	for _, d := range parseStyle(attr(e.n, "style")) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// SetStyle sets an inline style property. An empty value removes it.
func (e *Element) SetStyle(prop, value string) {
	decls := parseStyle(attr(e.n, "style"))
	found := false
	out := decls[:0]
	for _, d := range decls {
		if d.prop == prop {
			found = true
			if value == "" {
				continue
			}
			d.value = value
		}
		out = append(out, d)
	}
	if !found && value != "" {
		out = append(out, declaration{prop: prop, value: value})
	}
	if len(out) == 0 {
		e.RemoveAttribute("style")
		return
	}
	e.SetAttribute("style", formatStyle(out))
}

type declaration struct {
	prop  string
	value string
}

func parseStyle(s string) []declaration {
	var out []declaration
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop: prop, value: value})
	}
	return out
}

// formatStyle writes "prop: value; prop: value" so that attribute
// selectors like [style*="cursor: not-allowed"] keep matching.
func formatStyle(decls []declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ": " + d.value
	}
	return strings.Join(parts, "; ")
}
