package pip

import "strings"

// Extras is an ordered, de-duplicated set of extras names requested
// alongside the primary package.
type Extras []string

// ParseExtras parses a comma-separated extras list, trimming whitespace
// and dropping empty entries and duplicates while preserving order.
func ParseExtras(raw string) Extras {
	if raw == "" {
		return Extras{}
	}

	seen := make(map[string]bool)
	extras := Extras{}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		extras = append(extras, name)
	}
	return extras
}

// Render returns the bracketed comma-joined form used in pip requirement
// specifiers. An empty set renders as "[]".
func (e Extras) Render() string {
	return "[" + strings.Join(e, ",") + "]"
}

// Spec returns the full requirement specifier for the given package name,
// e.g. "apache-airflow[gcp,mysql]".
func (e Extras) Spec(name string) string {
	return name + e.Render()
}
