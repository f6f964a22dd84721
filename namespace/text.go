package namespace

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// tokenPattern matches either namespace:'Quoted.Value' or namespace==Bare.Value.
// Both notations are alternatives of one expression so a file may mix them.
var tokenPattern = regexp.MustCompile(`namespace(?::'([^']+)'|=+([A-Za-z_][A-Za-z0-9_.]*))`)

// ExtractFile returns the namespaces referenced by the file at path.
func ExtractFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read namespace file: %w", err)
	}
	defer f.Close()

	return ExtractText(f)
}

// ExtractText returns the namespaces referenced by the content of r.
func ExtractText(r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read namespace text: %w", err)
	}
	return Extract(string(data)), nil
}

// Extract scans text for namespace tokens.
func Extract(text string) Set {
	var values []string
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		var v string
		if m[2] >= 0 {
			v = text[m[2]:m[3]]
		} else {
			v = text[m[4]:m[5]]
		}
		values = append(values, strings.TrimSpace(v))
	}
	return NewSet(values...)
}
