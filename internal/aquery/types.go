// Package aquery models the action graph that `bazel aquery --output=jsonproto`
// emits and loads it from plain or compressed files.
//
// Paths and input closures are stored compactly: a path is a chain of
// PathFragments and an action's inputs are a DAG of DepSetOfFiles. Package
// resolve expands both.
package aquery

// FragmentID identifies a PathFragment.
type FragmentID uint32

// ArtifactID identifies an Artifact.
type ArtifactID uint32

// DepSetID identifies a DepSetOfFiles.
type DepSetID uint32

// TargetID identifies a Target.
type TargetID uint32

// PathFragment is one path segment, optionally attached to a parent segment.
type PathFragment struct {
	ID       FragmentID  `json:"id"`
	Label    string      `json:"label"`
	ParentID *FragmentID `json:"parentId,omitempty"`
}

// HasParent reports whether the fragment continues a parent path.
func (f PathFragment) HasParent() bool {
	return f.ParentID != nil
}

// Artifact is a file known to the build, located by its path fragment.
type Artifact struct {
	ID             ArtifactID `json:"id"`
	PathFragmentID FragmentID `json:"pathFragmentId"`
}

// DepSetOfFiles is a shareable set of artifacts: the artifacts it owns
// directly plus everything reachable through its transitive sets.
type DepSetOfFiles struct {
	ID                  DepSetID     `json:"id"`
	DirectArtifactIDs   []ArtifactID `json:"directArtifactIds,omitempty"`
	TransitiveDepSetIDs []DepSetID   `json:"transitiveDepSetIds,omitempty"`
}

// Action is one build step. Once decoded, Arguments holds the compiler
// arguments without the program name; the program bazel reported is kept
// in Program.
type Action struct {
	TargetID       TargetID   `json:"targetId,omitempty"`
	ActionKey      string     `json:"actionKey,omitempty"`
	Mnemonic       string     `json:"mnemonic,omitempty"`
	Program        string     `json:"-"`
	Arguments      []string   `json:"arguments"`
	InputDepSetIDs []DepSetID `json:"inputDepSetIds,omitempty"`
}

// splitProgram moves the leading program name out of Arguments. Bazel
// reports the full command line; everything downstream of decoding works on
// the compiler arguments alone.
func (a *Action) splitProgram() {
	if len(a.Arguments) == 0 {
		return
	}
	a.Program = a.Arguments[0]
	a.Arguments = a.Arguments[1:]
}

// Target is the rule that owns actions.
type Target struct {
	ID    TargetID `json:"id"`
	Label string   `json:"label"`
}

// Document is a whole aquery result.
type Document struct {
	Artifacts     []Artifact      `json:"artifacts"`
	Actions       []Action        `json:"actions"`
	Targets       []Target        `json:"targets,omitempty"`
	DepSetOfFiles []DepSetOfFiles `json:"depSetOfFiles"`
	PathFragments []PathFragment  `json:"pathFragments"`
}

// TargetLabels maps target ids to their labels.
func (d *Document) TargetLabels() map[TargetID]string {
	labels := make(map[TargetID]string, len(d.Targets))
	for _, t := range d.Targets {
		labels[t.ID] = t.Label
	}
	return labels
}
