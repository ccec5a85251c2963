package resolve

import (
	"fmt"

	"compdb/internal/aquery"
)

// Resolution holds the expanded tables of one aquery document.
type Resolution struct {
	Paths     PathTable
	DepSets   DepSetTable
	Artifacts ArtifactTable
}

// Resolve expands doc's path fragments, dep sets and artifacts.
func Resolve(doc *aquery.Document, opts ...Option) (*Resolution, error) {
	paths, err := ResolvePathFragments(doc.PathFragments)
	if err != nil {
		return nil, fmt.Errorf("resolving path fragments: %w", err)
	}

	depSets, err := FlattenDepSets(doc.DepSetOfFiles, opts...)
	if err != nil {
		return nil, fmt.Errorf("flattening dep sets: %w", err)
	}

	artifacts, err := BuildArtifactTable(paths, doc.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("building artifact table: %w", err)
	}

	return &Resolution{
		Paths:     paths,
		DepSets:   depSets,
		Artifacts: artifacts,
	}, nil
}

// Inputs returns the union of the flattened sets of the dep sets in ids.
func (r *Resolution) Inputs(ids []aquery.DepSetID) (ArtifactSet, error) {
	inputs := make(ArtifactSet)
	for _, id := range ids {
		set, ok := r.DepSets[id]
		if !ok {
			return nil, missingError("dep set", uint32(id), "action inputs")
		}
		inputs.AddAll(set)
	}
	return inputs, nil
}

// ArtifactPath returns the resolved path of an artifact.
func (r *Resolution) ArtifactPath(id aquery.ArtifactID) (string, error) {
	path, ok := r.Artifacts[id]
	if !ok {
		return "", missingError("artifact", uint32(id), "dep set")
	}
	return path, nil
}
