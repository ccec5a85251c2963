package matcher

import (
	"strings"
	"testing"

	"compdb/internal/aquery"
	"compdb/internal/errors"
	"compdb/internal/resolve"
)

func fixture(t *testing.T) *resolve.Resolution {
	t.Helper()

	p := func(id aquery.FragmentID) *aquery.FragmentID { return &id }
	doc := &aquery.Document{
		PathFragments: []aquery.PathFragment{
			{ID: 1, Label: "src"},
			{ID: 2, Label: "main.cc", ParentID: p(1)},
			{ID: 3, Label: "util.h", ParentID: p(1)},
			{ID: 4, Label: "util.cc", ParentID: p(1)},
		},
		Artifacts: []aquery.Artifact{
			{ID: 20, PathFragmentID: 2},
			{ID: 30, PathFragmentID: 3},
			{ID: 40, PathFragmentID: 4},
		},
		DepSetOfFiles: []aquery.DepSetOfFiles{
			{ID: 1, DirectArtifactIDs: []aquery.ArtifactID{30}},
			{ID: 2, DirectArtifactIDs: []aquery.ArtifactID{20}, TransitiveDepSetIDs: []aquery.DepSetID{1}},
			{ID: 3, DirectArtifactIDs: []aquery.ArtifactID{40}, TransitiveDepSetIDs: []aquery.DepSetID{1}},
		},
	}

	res, err := resolve.Resolve(doc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return res
}

func TestSource(t *testing.T) {
	res := fixture(t)

	tests := []struct {
		name   string
		action Action
		want   Match
	}{
		{
			name: "single input in arguments",
			action: Action{
				Arguments: []string{"-c", "src/main.cc", "-o", "main.o"},
				Inputs:    []aquery.DepSetID{2},
			},
			want: Match{Artifact: 20, Path: "src/main.cc"},
		},
		{
			name: "header in closure but not in arguments",
			action: Action{
				Arguments: []string{"-Isrc", "-c", "src/util.cc"},
				Inputs:    []aquery.DepSetID{3},
			},
			want: Match{Artifact: 40, Path: "src/util.cc"},
		},
		{
			name: "same artifact reached through several dep sets",
			action: Action{
				Arguments: []string{"src/util.h", "-fsyntax-only"},
				Inputs:    []aquery.DepSetID{1, 2, 1},
			},
			want: Match{Artifact: 30, Path: "src/util.h"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Source(res, tt.action)
			if err != nil {
				t.Fatalf("Source() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Source() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSource_TokenMustMatchExactly(t *testing.T) {
	res := fixture(t)

	action := Action{
		Index:     4,
		Arguments: []string{"-c", "./src/main.cc", "-MF", "src/main.cc.d"},
		Inputs:    []aquery.DepSetID{2},
	}

	_, err := Source(res, action)
	if !errors.HasCode(err, errors.AmbiguousSourceFile) {
		t.Fatalf("Source() error = %v, want %s", err, errors.AmbiguousSourceFile)
	}
}

func TestSource_Ambiguous(t *testing.T) {
	res := fixture(t)

	tests := []struct {
		name       string
		action     Action
		wantCount  int
		wantInMsg  string
		candidates []string
	}{
		{
			name: "no candidates",
			action: Action{
				Index:     7,
				Label:     "//src:main",
				Arguments: []string{"-c", "other.cc"},
				Inputs:    []aquery.DepSetID{2},
			},
			wantCount: 0,
			wantInMsg: "action 7 (//src:main)",
		},
		{
			name: "two candidates",
			action: Action{
				Index:     3,
				Arguments: []string{"-c", "src/main.cc", "src/util.cc"},
				Inputs:    []aquery.DepSetID{2, 3},
			},
			wantCount:  2,
			wantInMsg:  "2 inputs",
			candidates: []string{"src/main.cc", "src/util.cc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Source(res, tt.action)
			if !errors.HasCode(err, errors.AmbiguousSourceFile) {
				t.Fatalf("Source() error = %v, want %s", err, errors.AmbiguousSourceFile)
			}
			if !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Errorf("error %q should contain %q", err, tt.wantInMsg)
			}

			ce := err.(*errors.CompdbError)
			details, ok := ce.Details.(AmbiguityDetails)
			if !ok {
				t.Fatalf("Details = %T, want AmbiguityDetails", ce.Details)
			}
			if details.CandidateCount != tt.wantCount {
				t.Errorf("CandidateCount = %d, want %d", details.CandidateCount, tt.wantCount)
			}
			if details.ActionIndex != tt.action.Index {
				t.Errorf("ActionIndex = %d, want %d", details.ActionIndex, tt.action.Index)
			}
			if strings.Join(details.Candidates, ",") != strings.Join(tt.candidates, ",") {
				t.Errorf("Candidates = %v, want %v", details.Candidates, tt.candidates)
			}
		})
	}
}

func TestSource_MissingDepSet(t *testing.T) {
	res := fixture(t)

	_, err := Source(res, Action{
		Arguments: []string{"src/main.cc"},
		Inputs:    []aquery.DepSetID{2, 99},
	})
	if !errors.HasCode(err, errors.MissingReference) {
		t.Fatalf("Source() error = %v, want %s", err, errors.MissingReference)
	}
}

func TestSource_MissingArtifact(t *testing.T) {
	res := fixture(t)
	res.DepSets[50] = resolve.NewArtifactSet(20, 404)

	_, err := Source(res, Action{
		Arguments: []string{"src/main.cc"},
		Inputs:    []aquery.DepSetID{50},
	})
	if !errors.HasCode(err, errors.MissingReference) {
		t.Fatalf("Source() error = %v, want %s", err, errors.MissingReference)
	}
}
