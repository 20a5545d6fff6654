// Package stacktrace trims runtime stack dumps down to this module's frames.
package stacktrace

import "strings"

// InternalPaths returns the "internal/...go:line" locations found in a raw
// stack trace as produced by runtime/debug.Stack.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines)/2)

	for _, line := range lines {
		line = strings.TrimSpace(line)

		_, rel, found := strings.Cut(line, "/internal/")
		if !found {
			continue
		}

		idx := strings.Index(rel, ".go:")
		if idx == -1 {
			continue
		}

		loc := rel
		if end := strings.IndexByte(rel[idx:], ' '); end != -1 {
			loc = rel[:idx+end]
		}

		paths = append(paths, "internal/"+loc)
	}

	return paths
}
