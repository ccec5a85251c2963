// Package resolve expands the compact encodings of an aquery document into
// concrete tables: fragment id to path, dep set id to flattened artifact set,
// and artifact id to path.
//
// Every table is computed once per document in a single pass and is read-only
// afterwards. Traversals use explicit stacks over an arena keyed by id, so a
// pathological trace fails with CYCLE_DETECTED instead of exhausting the call
// stack.
package resolve

import (
	"fmt"
	"strings"

	"compdb/internal/errors"
)

// nodeState is the resolution progress of one arena entry.
type nodeState uint8

const (
	unresolved nodeState = iota
	inProgress
	resolved
)

func (s nodeState) String() string {
	switch s {
	case unresolved:
		return "unresolved"
	case inProgress:
		return "in-progress"
	case resolved:
		return "resolved"
	default:
		return fmt.Sprintf("nodeState(%d)", uint8(s))
	}
}

// CycleDetails is attached to CYCLE_DETECTED errors.
type CycleDetails struct {
	Kind string   `json:"kind"`
	Path []uint32 `json:"path"`
}

// MissingReferenceDetails is attached to MISSING_REFERENCE errors.
type MissingReferenceDetails struct {
	Kind         string `json:"kind"`
	ID           uint32 `json:"id"`
	ReferencedBy string `json:"referencedBy"`
}

func cycleError(kind string, path []uint32) error {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprint(id)
	}
	return errors.New(errors.CycleDetected, "%s cycle detected: %s", kind, strings.Join(parts, " -> ")).
		WithDetails(CycleDetails{Kind: kind, Path: path})
}

func missingError(kind string, id uint32, referencedBy string) error {
	return errors.New(errors.MissingReference, "%s %d referenced by %s does not exist", kind, id, referencedBy).
		WithDetails(MissingReferenceDetails{Kind: kind, ID: id, ReferencedBy: referencedBy})
}

func duplicateError(kind string, id uint32) error {
	return errors.New(errors.DuplicateIdentity, "%s %d is defined more than once", kind, id)
}
