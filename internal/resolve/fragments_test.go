package resolve

import (
	"fmt"
	"strings"
	"testing"

	"compdb/internal/aquery"
	"compdb/internal/errors"
)

func parent(id aquery.FragmentID) *aquery.FragmentID {
	return &id
}

// chain builds fragments 1..depth+1 where each fragment's parent is the
// previous one and fragment i is labelled "d<i>".
func chain(depth int) ([]aquery.PathFragment, []string) {
	fragments := []aquery.PathFragment{{ID: 1, Label: "d1"}}
	labels := []string{"d1"}
	for i := 2; i <= depth+1; i++ {
		label := fmt.Sprintf("d%d", i)
		fragments = append(fragments, aquery.PathFragment{
			ID:       aquery.FragmentID(i),
			Label:    label,
			ParentID: parent(aquery.FragmentID(i - 1)),
		})
		labels = append(labels, label)
	}
	return fragments, labels
}

func TestResolvePathFragments_Chain(t *testing.T) {
	for _, depth := range []int{0, 1, 5, 50} {
		t.Run(fmt.Sprintf("depth=%d", depth), func(t *testing.T) {
			fragments, labels := chain(depth)

			paths, err := ResolvePathFragments(fragments)
			if err != nil {
				t.Fatalf("ResolvePathFragments() error = %v", err)
			}

			leaf := aquery.FragmentID(depth + 1)
			want := strings.Join(labels, "/")
			if got := paths[leaf]; got != want {
				t.Errorf("paths[%d] = %q, want %q", leaf, got, want)
			}
			if len(paths) != len(fragments) {
				t.Errorf("len(paths) = %d, want %d", len(paths), len(fragments))
			}
		})
	}
}

func TestResolvePathFragments_ChildBeforeParent(t *testing.T) {
	fragments := []aquery.PathFragment{
		{ID: 3, Label: "c.cc", ParentID: parent(2)},
		{ID: 2, Label: "b", ParentID: parent(1)},
		{ID: 1, Label: "a"},
		{ID: 4, Label: "d.h", ParentID: parent(2)},
	}

	paths, err := ResolvePathFragments(fragments)
	if err != nil {
		t.Fatalf("ResolvePathFragments() error = %v", err)
	}

	want := PathTable{1: "a", 2: "a/b", 3: "a/b/c.cc", 4: "a/b/d.h"}
	for id, path := range want {
		if paths[id] != path {
			t.Errorf("paths[%d] = %q, want %q", id, paths[id], path)
		}
	}
}

func TestResolvePathFragments_ByteExact(t *testing.T) {
	fragments := []aquery.PathFragment{
		{ID: 1, Label: "bazel-out"},
		{ID: 2, Label: "", ParentID: parent(1)},
		{ID: 3, Label: "Mixed.CC", ParentID: parent(2)},
		{ID: 4, Label: "..", ParentID: parent(1)},
		{ID: 5, Label: "x", ParentID: parent(4)},
	}

	paths, err := ResolvePathFragments(fragments)
	if err != nil {
		t.Fatalf("ResolvePathFragments() error = %v", err)
	}

	if got := paths[3]; got != "bazel-out//Mixed.CC" {
		t.Errorf("paths[3] = %q, want %q", got, "bazel-out//Mixed.CC")
	}
	if got := paths[5]; got != "bazel-out/../x" {
		t.Errorf("paths[5] = %q, want %q", got, "bazel-out/../x")
	}
}

func TestResolvePathFragments_DeepChain(t *testing.T) {
	const depth = 5000
	fragments := []aquery.PathFragment{{ID: 1, Label: "x"}}
	for i := 2; i <= depth; i++ {
		fragments = append(fragments, aquery.PathFragment{
			ID:       aquery.FragmentID(i),
			Label:    "x",
			ParentID: parent(aquery.FragmentID(i - 1)),
		})
	}
	// Resolve leaf first so the whole chain sits on the stack at once.
	fragments[0], fragments[depth-1] = fragments[depth-1], fragments[0]

	paths, err := ResolvePathFragments(fragments)
	if err != nil {
		t.Fatalf("ResolvePathFragments() error = %v", err)
	}
	leaf := paths[aquery.FragmentID(depth)]
	if want := 2*depth - 1; len(leaf) != want {
		t.Errorf("len(leaf path) = %d, want %d", len(leaf), want)
	}
	if strings.Count(leaf, "/") != depth-1 {
		t.Errorf("leaf path has %d separators, want %d", strings.Count(leaf, "/"), depth-1)
	}
}

func TestResolvePathFragments_Cycle(t *testing.T) {
	tests := []struct {
		name      string
		fragments []aquery.PathFragment
	}{
		{
			name:      "self parent",
			fragments: []aquery.PathFragment{{ID: 1, Label: "a", ParentID: parent(1)}},
		},
		{
			name: "two node loop",
			fragments: []aquery.PathFragment{
				{ID: 1, Label: "a", ParentID: parent(2)},
				{ID: 2, Label: "b", ParentID: parent(1)},
			},
		},
		{
			name: "leaf above loop",
			fragments: []aquery.PathFragment{
				{ID: 4, Label: "leaf", ParentID: parent(3)},
				{ID: 3, Label: "c", ParentID: parent(2)},
				{ID: 2, Label: "b", ParentID: parent(1)},
				{ID: 1, Label: "a", ParentID: parent(3)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolvePathFragments(tt.fragments)
			if !errors.HasCode(err, errors.CycleDetected) {
				t.Fatalf("ResolvePathFragments() error = %v, want %s", err, errors.CycleDetected)
			}
		})
	}
}

func TestResolvePathFragments_CyclePath(t *testing.T) {
	fragments := []aquery.PathFragment{
		{ID: 1, Label: "a", ParentID: parent(2)},
		{ID: 2, Label: "b", ParentID: parent(1)},
	}

	_, err := ResolvePathFragments(fragments)
	var ce *errors.CompdbError
	if !asCompdbError(err, &ce) {
		t.Fatalf("error = %v, want *CompdbError", err)
	}
	details, ok := ce.Details.(CycleDetails)
	if !ok {
		t.Fatalf("Details = %T, want CycleDetails", ce.Details)
	}
	want := []uint32{1, 2, 1}
	if fmt.Sprint(details.Path) != fmt.Sprint(want) {
		t.Errorf("cycle path = %v, want %v", details.Path, want)
	}
}

func TestResolvePathFragments_MissingParent(t *testing.T) {
	fragments := []aquery.PathFragment{
		{ID: 1, Label: "a"},
		{ID: 2, Label: "b", ParentID: parent(9)},
	}

	_, err := ResolvePathFragments(fragments)
	if !errors.HasCode(err, errors.MissingReference) {
		t.Fatalf("ResolvePathFragments() error = %v, want %s", err, errors.MissingReference)
	}
	if !strings.Contains(err.Error(), "path fragment 9") {
		t.Errorf("error %q should name the missing fragment", err)
	}
}

func TestResolvePathFragments_Duplicate(t *testing.T) {
	fragments := []aquery.PathFragment{
		{ID: 1, Label: "a"},
		{ID: 1, Label: "b"},
	}

	_, err := ResolvePathFragments(fragments)
	if !errors.HasCode(err, errors.DuplicateIdentity) {
		t.Fatalf("ResolvePathFragments() error = %v, want %s", err, errors.DuplicateIdentity)
	}
}

func asCompdbError(err error, target **errors.CompdbError) bool {
	ce, ok := err.(*errors.CompdbError)
	if ok {
		*target = ce
	}
	return ok
}
