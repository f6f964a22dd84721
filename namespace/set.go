// Package namespace extracts dotted namespaces from assemblies and text files
// and computes which assembly namespaces a text file covers.
//
// All comparisons are ordinal: byte-wise, case-sensitive and locale-free.
package namespace

import (
	"slices"
	"strings"
)

// Set is a sorted, duplicate-free list of namespaces.
type Set []string

// NewSet builds a Set from values, dropping empty strings and duplicates.
func NewSet(values ...string) Set {
	out := make(Set, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether ns is a member of the set.
func (s Set) Contains(ns string) bool {
	_, found := slices.BinarySearch(s, ns)
	return found
}

// Len returns the number of namespaces in the set.
func (s Set) Len() int {
	return len(s)
}

// IsAncestor reports whether parent is a proper dotted prefix of ns,
// e.g. "A.B" is an ancestor of "A.B.C" but not of "A.BC".
func IsAncestor(parent, ns string) bool {
	return strings.HasPrefix(ns, parent+".")
}
