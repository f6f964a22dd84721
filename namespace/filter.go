package namespace

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter restricts assembly namespaces to a root and drops excluded ones.
type Filter struct {
	// Root keeps only namespaces strictly beneath it. The root itself is
	// dropped. An empty Root keeps every namespace.
	Root string
	// Exclude drops namespaces starting with any entry. Entries containing
	// glob characters are matched segment-wise with doublestar against the
	// namespace and its ancestors, so "Contoso.**.Internal" drops every
	// Internal namespace under Contoso along with everything beneath it.
	Exclude []string
}

// Apply returns the members of s that pass the filter.
func (f Filter) Apply(s Set) Set {
	out := make(Set, 0, len(s))
	for _, ns := range s {
		if f.Keep(ns) {
			out = append(out, ns)
		}
	}
	return out
}

// Keep reports whether ns passes the filter.
func (f Filter) Keep(ns string) bool {
	if f.Root != "" && !strings.HasPrefix(ns, f.Root+".") {
		return false
	}
	for _, ex := range f.Exclude {
		if excludes(ex, ns) {
			return false
		}
	}
	return true
}

func excludes(pattern, ns string) bool {
	if !IsGlob(pattern) {
		return strings.HasPrefix(ns, pattern)
	}
	p, name := segments(pattern), segments(ns)
	if ok, err := doublestar.Match(p, name); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match(p+"/**", name)
	return err == nil && ok
}

// IsGlob reports whether an exclusion entry is a glob pattern.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// ValidPattern reports whether an exclusion entry can be matched.
func ValidPattern(pattern string) bool {
	return !IsGlob(pattern) || doublestar.ValidatePattern(segments(pattern))
}

// segments maps namespace dots onto doublestar's path separator.
func segments(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}
