package btree

import (
	"fmt"
	"log/slog"
	"slices"
)

// DeleteMode selects how far Remove reaches into the tree.
type DeleteMode int

const (
	// DeleteRootOnly only removes from the root node. Once the root is an
	// internal node (the tree grew past one leaf) Remove is a silent no-op.
	DeleteRootOnly DeleteMode = iota
	// DeleteDescend walks to the leaf holding the pair and removes it there.
	// Leaves are never merged or rebalanced and may end up empty.
	DeleteDescend
)

func (m DeleteMode) String() string {
	switch m {
	case DeleteRootOnly:
		return "root_only"
	case DeleteDescend:
		return "descend"
	default:
		return "unknown"
	}
}

func ParseDeleteMode(s string) (DeleteMode, error) {
	switch s {
	case "root_only", "":
		return DeleteRootOnly, nil
	case "descend":
		return DeleteDescend, nil
	default:
		return 0, fmt.Errorf("invalid delete mode: %s", s)
	}
}

// Remove deletes (key, value) and reports whether an entry was removed.
// With DeleteRootOnly a present pair below an internal root is left in
// place and Remove returns false, nil.
func (t *Tree) Remove(key string, value int32) (bool, error) {
	e, err := t.entry(key, value)
	if err != nil {
		return false, err
	}

	values, err := t.Find(e.Key)
	if err != nil {
		return false, err
	}
	if !slices.Contains(values, value) {
		return false, nil
	}

	var n *Node
	switch t.opts.DeleteMode {
	case DeleteDescend:
		leaf, idx, err := t.locate(e)
		if err != nil {
			return false, err
		}
		if idx < 0 {
			return false, nil
		}
		n = leaf
		n.Entries = slices.Delete(n.Entries, idx, idx+1)

	default:
		root, err := t.readNode(t.root)
		if err != nil {
			return false, err
		}
		if !root.Leaf {
			slog.Debug("btree.Remove.skipped", "reason", "internal root", "entry", e.String())
			return false, nil
		}
		idx, found := slices.BinarySearchFunc(root.Entries, e, CompareEntries)
		if !found {
			return false, nil
		}
		n = root
		n.Entries = slices.Delete(n.Entries, idx, idx+1)
	}

	if err := t.writeNode(n); err != nil {
		return false, err
	}
	return true, nil
}
