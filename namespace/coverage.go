package namespace

// Coverage partitions leaf namespaces by whether a file namespace covers them.
type Coverage struct {
	Covered   Set
	Uncovered Set
}

// IsCovered reports whether ns equals a file namespace or sits beneath one.
// A file namespace nested below ns does not cover it.
func IsCovered(ns string, files Set) bool {
	if files.Contains(ns) {
		return true
	}
	for _, f := range files {
		if IsAncestor(f, ns) {
			return true
		}
	}
	return false
}

// Evaluate splits leaves into covered and uncovered namespaces.
func Evaluate(leaves, files Set) Coverage {
	var c Coverage
	for _, ns := range leaves {
		if IsCovered(ns, files) {
			c.Covered = append(c.Covered, ns)
		} else {
			c.Uncovered = append(c.Uncovered, ns)
		}
	}
	c.Covered = NewSet(c.Covered...)
	c.Uncovered = NewSet(c.Uncovered...)
	return c
}
