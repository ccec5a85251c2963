package resolve

import (
	"fmt"

	"compdb/internal/aquery"
	"compdb/internal/errors"
)

// Separator joins path fragment labels.
const Separator = "/"

// PathTable maps every path fragment to its full path.
type PathTable map[aquery.FragmentID]string

type fragmentNode struct {
	fragment *aquery.PathFragment
	state    nodeState
}

// ResolvePathFragments resolves every fragment to the labels of its ancestor
// chain joined by Separator. Labels are concatenated byte for byte; nothing is
// cleaned or normalized, since the result must equal what bazel writes into
// action arguments.
func ResolvePathFragments(fragments []aquery.PathFragment) (PathTable, error) {
	nodes := make(map[aquery.FragmentID]*fragmentNode, len(fragments))
	for i := range fragments {
		f := &fragments[i]
		if _, ok := nodes[f.ID]; ok {
			return nil, duplicateError("path fragment", uint32(f.ID))
		}
		nodes[f.ID] = &fragmentNode{fragment: f}
	}

	paths := make(PathTable, len(fragments))
	var stack []aquery.FragmentID
	for i := range fragments {
		var err error
		stack, err = resolveFragment(nodes, paths, fragments[i].ID, stack[:0])
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// resolveFragment resolves id and any unresolved ancestors. The stack holds
// the chain being resolved, leaf first; it is returned for reuse.
func resolveFragment(
	nodes map[aquery.FragmentID]*fragmentNode,
	paths PathTable,
	id aquery.FragmentID,
	stack []aquery.FragmentID,
) ([]aquery.FragmentID, error) {
	stack = append(stack, id)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		node := nodes[top]

		switch node.state {
		case resolved:
			stack = stack[:len(stack)-1]
			continue

		case unresolved:
			if !node.fragment.HasParent() {
				paths[top] = node.fragment.Label
				node.state = resolved
				stack = stack[:len(stack)-1]
				continue
			}

			parentID := *node.fragment.ParentID
			parent, ok := nodes[parentID]
			if !ok {
				return stack, missingError("path fragment", uint32(parentID), fmt.Sprintf("path fragment %d", top))
			}

			node.state = inProgress
			switch parent.state {
			case inProgress:
				return stack, cycleError("path fragment", fragmentCycle(stack, parentID))
			case unresolved:
				stack = append(stack, parentID)
				continue
			}
			// Parent already resolved: finish in the in-progress branch below.
			fallthrough

		case inProgress:
			parentID := *node.fragment.ParentID
			paths[top] = paths[parentID] + Separator + node.fragment.Label
			node.state = resolved
			stack = stack[:len(stack)-1]

		default:
			return stack, errors.New(errors.InternalError, "path fragment %d in state %s", top, node.state)
		}
	}

	return stack, nil
}

// fragmentCycle returns the chain from the first occurrence of start on the
// stack to the top, closed by start again.
func fragmentCycle(stack []aquery.FragmentID, start aquery.FragmentID) []uint32 {
	var path []uint32
	for i := len(stack) - 1; i >= 0; i-- {
		path = append(path, uint32(stack[i]))
		if stack[i] == start {
			break
		}
	}
	// Stack order is child first; report parent links in walk order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, path[0])
}
