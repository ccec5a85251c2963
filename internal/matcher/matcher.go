// Package matcher finds the source file a compile action compiles.
package matcher

import (
	"fmt"
	"sort"

	"compdb/internal/aquery"
	"compdb/internal/errors"
	"compdb/internal/resolve"
)

// Action is the part of a build action the matcher needs.
type Action struct {
	// Index is the action's position in the trace.
	Index int
	// Label names the owning target when known.
	Label     string
	Arguments []string
	Inputs    []aquery.DepSetID
}

// Match is the compiled source of an action.
type Match struct {
	Artifact aquery.ArtifactID
	Path     string
}

// AmbiguityDetails is attached to AMBIGUOUS_SOURCE_FILE errors.
type AmbiguityDetails struct {
	ActionIndex    int      `json:"actionIndex"`
	Label          string   `json:"label,omitempty"`
	Arguments      []string `json:"arguments"`
	CandidateCount int      `json:"candidateCount"`
	Candidates     []string `json:"candidates,omitempty"`
}

// Source returns the single input artifact whose path appears verbatim as one
// of the action's arguments. Zero or several such artifacts mean an action
// does not compile exactly one of its inputs, which is reported rather than
// guessed.
func Source(res *resolve.Resolution, action Action) (Match, error) {
	inputs, err := res.Inputs(action.Inputs)
	if err != nil {
		return Match{}, fmt.Errorf("%s: %w", describe(action), err)
	}

	tokens := make(map[string]struct{}, len(action.Arguments))
	for _, arg := range action.Arguments {
		tokens[arg] = struct{}{}
	}

	var matches []Match
	for _, id := range inputs.Sorted() {
		path, err := res.ArtifactPath(id)
		if err != nil {
			return Match{}, fmt.Errorf("%s: %w", describe(action), err)
		}
		if _, ok := tokens[path]; ok {
			matches = append(matches, Match{Artifact: id, Path: path})
		}
	}

	if len(matches) != 1 {
		return Match{}, ambiguityError(action, matches)
	}
	return matches[0], nil
}

func ambiguityError(action Action, matches []Match) error {
	candidates := make([]string, len(matches))
	for i, m := range matches {
		candidates[i] = m.Path
	}
	sort.Strings(candidates)

	var msg string
	if len(matches) == 0 {
		msg = fmt.Sprintf("%s: none of its inputs appears in its arguments", describe(action))
	} else {
		msg = fmt.Sprintf("%s: %d inputs appear in its arguments", describe(action), len(matches))
	}

	return errors.New(errors.AmbiguousSourceFile, "%s", msg).WithDetails(AmbiguityDetails{
		ActionIndex:    action.Index,
		Label:          action.Label,
		Arguments:      action.Arguments,
		CandidateCount: len(matches),
		Candidates:     candidates,
	})
}

func describe(action Action) string {
	if action.Label != "" {
		return fmt.Sprintf("action %d (%s)", action.Index, action.Label)
	}
	return fmt.Sprintf("action %d", action.Index)
}
