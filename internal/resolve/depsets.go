package resolve

import (
	"fmt"

	"compdb/internal/aquery"
	"compdb/internal/errors"
)

// DepSetTable maps every dep set to all artifacts reachable from it.
type DepSetTable map[aquery.DepSetID]ArtifactSet

// Option configures dep set flattening.
type Option func(*options)

type options struct {
	visit func(aquery.DepSetID)
}

// WithVisit registers fn to be called once for every dep set whose flattened
// set is computed.
func WithVisit(fn func(aquery.DepSetID)) Option {
	return func(o *options) {
		o.visit = fn
	}
}

type depSetNode struct {
	depSet *aquery.DepSetOfFiles
	state  nodeState
}

// frame is one dep set on the traversal stack; next indexes the first
// transitive set not yet known to be resolved.
type frame struct {
	id   aquery.DepSetID
	next int
}

// FlattenDepSets computes, for every dep set, the union of its direct
// artifacts and the flattened sets of its transitive dep sets. Each dep set
// is flattened exactly once regardless of how many parents share it.
func FlattenDepSets(depSets []aquery.DepSetOfFiles, opts ...Option) (DepSetTable, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	nodes := make(map[aquery.DepSetID]*depSetNode, len(depSets))
	for i := range depSets {
		ds := &depSets[i]
		if _, ok := nodes[ds.ID]; ok {
			return nil, duplicateError("dep set", uint32(ds.ID))
		}
		nodes[ds.ID] = &depSetNode{depSet: ds}
	}

	table := make(DepSetTable, len(depSets))
	var stack []frame
	for i := range depSets {
		var err error
		stack, err = flattenDepSet(nodes, table, depSets[i].ID, stack[:0], o.visit)
		if err != nil {
			return nil, err
		}
	}
	return table, nil
}

func flattenDepSet(
	nodes map[aquery.DepSetID]*depSetNode,
	table DepSetTable,
	id aquery.DepSetID,
	stack []frame,
	visit func(aquery.DepSetID),
) ([]frame, error) {
	if nodes[id].state == resolved {
		return stack, nil
	}
	stack = append(stack, frame{id: id})

outer:
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		node := nodes[top.id]
		node.state = inProgress

		children := node.depSet.TransitiveDepSetIDs
		for ; top.next < len(children); top.next++ {
			childID := children[top.next]
			child, ok := nodes[childID]
			if !ok {
				return stack, missingError("dep set", uint32(childID), fmt.Sprintf("dep set %d", top.id))
			}

			switch child.state {
			case resolved:
				continue
			case inProgress:
				return stack, cycleError("dep set", depSetCycle(stack, childID))
			case unresolved:
				stack = append(stack, frame{id: childID})
				continue outer
			default:
				return stack, errors.New(errors.InternalError, "dep set %d in state %s", childID, child.state)
			}
		}

		set := NewArtifactSet(node.depSet.DirectArtifactIDs...)
		for _, childID := range children {
			set.AddAll(table[childID])
		}
		table[top.id] = set
		node.state = resolved
		if visit != nil {
			visit(top.id)
		}
		stack = stack[:len(stack)-1]
	}

	return stack, nil
}

// depSetCycle returns the dep sets from the first stack occurrence of start
// to the top, closed by start again.
func depSetCycle(stack []frame, start aquery.DepSetID) []uint32 {
	begin := 0
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id == start {
			begin = i
			break
		}
	}
	path := make([]uint32, 0, len(stack)-begin+1)
	for _, f := range stack[begin:] {
		path = append(path, uint32(f.id))
	}
	return append(path, uint32(start))
}
