package resolve

import (
	"sort"

	"compdb/internal/aquery"
)

// ArtifactSet is an unordered set of artifact ids.
type ArtifactSet map[aquery.ArtifactID]struct{}

// NewArtifactSet returns a set holding ids.
func NewArtifactSet(ids ...aquery.ArtifactID) ArtifactSet {
	s := make(ArtifactSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// AddAll inserts every member of other.
func (s ArtifactSet) AddAll(other ArtifactSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Len returns the number of members.
func (s ArtifactSet) Len() int {
	return len(s)
}

// Equal reports set equality.
func (s ArtifactSet) Equal(other ArtifactSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members in ascending order.
func (s ArtifactSet) Sorted() []aquery.ArtifactID {
	ids := make([]aquery.ArtifactID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
