package compdb

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"compdb/internal/aquery"
	"compdb/internal/matcher"
	"compdb/internal/resolve"
)

// Options controls database assembly.
type Options struct {
	// ExecutionRoot is the directory every entry is relative to.
	ExecutionRoot string
	Compilers     Compilers
	// Exclude drops entries whose file matches one of these doublestar
	// patterns, e.g. "external/**".
	Exclude []string
	// Labels names the owning target of actions in diagnostics.
	Labels map[aquery.TargetID]string
}

// Database is an assembled compile command database.
type Database struct {
	Entries []Entry
	// Excluded counts actions dropped by Options.Exclude.
	Excluded int
}

// Build matches and emits an entry for every action, in trace order. It
// fails on the first action that cannot be matched and never returns a
// partial database.
func Build(res *resolve.Resolution, actions []aquery.Action, opts Options) (*Database, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	db := &Database{Entries: make([]Entry, 0, len(actions))}
	for i, action := range actions {
		m, err := matcher.Source(res, matcher.Action{
			Index:     i,
			Label:     opts.Labels[action.TargetID],
			Arguments: action.Arguments,
			Inputs:    action.InputDepSetIDs,
		})
		if err != nil {
			return nil, err
		}

		if excluded(opts.Exclude, m.Path) {
			db.Excluded++
			continue
		}
		db.Entries = append(db.Entries, Emit(opts.ExecutionRoot, action.Arguments, m.Path, opts.Compilers))
	}
	return db, nil
}

func excluded(patterns []string, file string) bool {
	for _, pattern := range patterns {
		// Patterns are validated once at the top of Build.
		if doublestar.MatchUnvalidated(pattern, file) {
			return true
		}
	}
	return false
}
