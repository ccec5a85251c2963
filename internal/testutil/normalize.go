package testutil

import (
	"bytes"
	"path/filepath"
	"sort"
)

// Placeholder pairs a machine-specific directory with the stable token that
// replaces it in golden output.
type Placeholder struct {
	Dir   string
	Token string
}

// NormalizeDirs rewrites every occurrence of each directory in data to its
// token. Longer directories are replaced first so a nested directory never
// ends up half rewritten by its parent's token.
func NormalizeDirs(data []byte, placeholders ...Placeholder) []byte {
	sorted := make([]Placeholder, 0, len(placeholders))
	for _, p := range placeholders {
		if p.Dir == "" {
			continue
		}
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Dir) > len(sorted[j].Dir)
	})

	out := data
	for _, p := range sorted {
		out = bytes.ReplaceAll(out, []byte(p.Dir), []byte(p.Token))
		if slashed := filepath.ToSlash(p.Dir); slashed != p.Dir {
			out = bytes.ReplaceAll(out, []byte(slashed), []byte(p.Token))
		}
	}
	return out
}
