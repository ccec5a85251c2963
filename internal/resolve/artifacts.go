package resolve

import (
	"fmt"

	"compdb/internal/aquery"
)

// ArtifactTable maps artifact ids to their resolved paths.
type ArtifactTable map[aquery.ArtifactID]string

// BuildArtifactTable joins artifacts to their resolved path fragments.
func BuildArtifactTable(paths PathTable, artifacts []aquery.Artifact) (ArtifactTable, error) {
	table := make(ArtifactTable, len(artifacts))
	for _, a := range artifacts {
		if _, ok := table[a.ID]; ok {
			return nil, duplicateError("artifact", uint32(a.ID))
		}
		path, ok := paths[a.PathFragmentID]
		if !ok {
			return nil, missingError("path fragment", uint32(a.PathFragmentID), fmt.Sprintf("artifact %d", a.ID))
		}
		table[a.ID] = path
	}
	return table, nil
}
