// Package report renders the namespace coverage report as console text.
package report

import (
	"bufio"
	"fmt"
	"io"
)

// Heading introduces the list of uncovered namespaces.
const Heading = "=== Assembly leaf namespaces NOT present in file ==="

// NoneLine is printed instead of the list when every leaf is covered.
const NoneLine = "None 🎉 (every assembly leaf namespace under root is covered by the file)"

// Summary holds everything the report prints.
type Summary struct {
	// Notices are warning or error lines raised while reading the assembly.
	Notices []string
	// Assembly is the display name of the assembly, usually its file name.
	Assembly string
	// Root is the configured root namespace.
	Root string

	Total    int
	Filtered int
	Leaves   int
	InFile   int

	// Uncovered lists the leaf namespaces the file does not cover, sorted.
	Uncovered []string
}

// Write prints the summary to w.
func Write(w io.Writer, s Summary) error {
	bw := bufio.NewWriter(w)

	for _, n := range s.Notices {
		fmt.Fprintln(bw, n)
	}
	fmt.Fprintf(bw, "Assembly: %s\n", s.Assembly)
	fmt.Fprintf(bw, "Total assembly namespaces (all): %d\n", s.Total)
	fmt.Fprintf(bw, "Filtered under root '%s': %d\n", s.Root, s.Filtered)
	fmt.Fprintf(bw, "Leaf namespaces considered: %d\n", s.Leaves)
	fmt.Fprintf(bw, "Namespaces in file: %d\n", s.InFile)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, Heading)
	if len(s.Uncovered) == 0 {
		fmt.Fprintln(bw, NoneLine)
	}
	for _, ns := range s.Uncovered {
		fmt.Fprintln(bw, ns)
	}

	return bw.Flush()
}
