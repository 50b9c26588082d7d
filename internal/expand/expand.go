// Package expand substitutes ${name} references in configuration values.
package expand

import (
	"regexp"
)

var re = regexp.MustCompile(`\$\{([a-zA-Z0-9_.-]+)(:-([^}]*))?\}`)

// Expand replaces each ${name} in v with mapping(name). In the form
// ${name:-default}, default is used when mapping yields an empty string.
func Expand(v string, mapping func(string) string) string {
	return re.ReplaceAllStringFunc(v, func(s string) string {
		m := re.FindStringSubmatch(s)
		r := mapping(m[1])
		if r == "" && m[2] != "" {
			r = m[3]
		}
		return r
	})
}
