package namespace

// Leaves keeps only the namespaces that are not an ancestor of another member.
// For {A, A.B, A.B.C, D} it returns {A.B.C, D}.
func Leaves(s Set) Set {
	out := make(Set, 0, len(s))
	for _, ns := range s {
		if !hasDescendant(ns, s) {
			out = append(out, ns)
		}
	}
	return out
}

func hasDescendant(ns string, s Set) bool {
	for _, other := range s {
		if IsAncestor(ns, other) {
			return true
		}
	}
	return false
}
