package btree

import (
	"fmt"
	"log/slog"
	"slices"
)

// Insert adds (key, value). It returns false without touching the file when
// the pair is already present, so a key maps to a set of values.
//
// Splits are preemptive: a full root is split before descending and every
// full child is split before it is entered, so the root is never full when
// Insert returns.
func (t *Tree) Insert(key string, value int32) (bool, error) {
	e, err := t.entry(key, value)
	if err != nil {
		return false, err
	}

	_, idx, err := t.locate(e)
	if err != nil {
		return false, err
	}
	if idx >= 0 {
		return false, nil
	}

	root, err := t.readNode(t.root)
	if err != nil {
		return false, err
	}

	if root.full() {
		newRoot, err := t.allocNode(false)
		if err != nil {
			return false, err
		}
		newRoot.Children = append(newRoot.Children, root.Pos)

		if _, err := t.splitChild(newRoot, 0, root); err != nil {
			return false, err
		}
		if err := t.writeNode(newRoot); err != nil {
			return false, err
		}

		t.root = newRoot.Pos
		if err := t.saveRoot(); err != nil {
			return false, err
		}
		slog.Debug("btree.root.grow", "oldRoot", root.Pos, "newRoot", newRoot.Pos)
		root = newRoot
	}

	if err := t.insertNonFull(root, e); err != nil {
		return false, err
	}
	return true, nil
}

// insertNonFull places e in the subtree rooted at n, which has room for one
// more entry.
func (t *Tree) insertNonFull(n *Node, e Entry) error {
	for !n.Leaf {
		i := childIndex(n, e)
		child, err := t.readNode(n.Children[i])
		if err != nil {
			return fmt.Errorf("descend from %d: %w", n.Pos, err)
		}

		if child.full() {
			sib, err := t.splitChild(n, i, child)
			if err != nil {
				return err
			}
			if err := t.writeNode(n); err != nil {
				return err
			}
			// The separator now at n.Entries[i] is the last entry of child.
			if CompareEntries(e, n.Entries[i]) > 0 {
				child = sib
			}
		}
		n = child
	}

	i, _ := slices.BinarySearchFunc(n.Entries, e, CompareEntries)
	n.Entries = slices.Insert(n.Entries, i, e)
	return t.writeNode(n)
}

// childIndex returns the index of the first entry >= e, or the last child
// slot when every entry is smaller.
func childIndex(n *Node, e Entry) int {
	i, _ := slices.BinarySearchFunc(n.Entries, e, CompareEntries)
	return i
}

// splitChild moves the upper half of the full node child (parent's i-th
// child) into a new sibling and promotes child's new last entry into parent
// at i. child and the sibling are written; the caller writes parent.
func (t *Tree) splitChild(parent *Node, i int, child *Node) (*Node, error) {
	sib, err := t.allocNode(child.Leaf)
	if err != nil {
		return nil, err
	}

	mid := len(child.Entries) / 2
	sep := child.Entries[mid-1]

	sib.Entries = append(sib.Entries, child.Entries[mid:]...)
	if !child.Leaf {
		// Children [mid, n] follow the moved entries. child keeps its first
		// mid children; its last entry becomes an upper bound.
		sib.Children = slices.Clone(child.Children[mid:])
		child.Children = append(slices.Clone(child.Children[:mid]), NilPos)
	}
	child.Entries = child.Entries[:mid]

	if child.Leaf {
		sib.Next = child.Next
		child.Next = sib.Pos
	}

	parent.Children = slices.Insert(parent.Children, i+1, sib.Pos)
	parent.Entries = slices.Insert(parent.Entries, i, sep)

	if err := t.writeNode(child); err != nil {
		return nil, err
	}
	if err := t.writeNode(sib); err != nil {
		return nil, err
	}

	slog.Debug("btree.splitChild",
		"parent", parent.Pos,
		"index", i,
		"child", child.Pos,
		"sibling", sib.Pos,
		"leaf", child.Leaf,
		"separator", sep.String(),
	)
	return sib, nil
}
