package btree

import (
	"fmt"
	"slices"
)

// Stats summarizes the shape of the tree.
type Stats struct {
	Root          int64
	Height        int
	InternalNodes int
	Leaves        int
	Entries       int
	// UnderfullLeaves counts non-root leaves holding fewer than MinKeys
	// entries. Only deletes in DeleteDescend mode produce them.
	UnderfullLeaves int
	// Records is every record in the node file, including slots no longer
	// reachable from the root.
	Records int64
}

// Stats walks the whole tree.
func (t *Tree) Stats() (Stats, error) {
	if t.nf == nil {
		return Stats{}, ErrTreeClosed
	}
	st := Stats{Root: t.root, Records: t.nf.RecordCount()}

	level := []int64{t.root}
	for len(level) > 0 {
		st.Height++
		var next []int64
		for _, pos := range level {
			n, err := t.readNode(pos)
			if err != nil {
				return Stats{}, err
			}
			if n.Leaf {
				st.Leaves++
				st.Entries += len(n.Entries)
				if pos != t.root && len(n.Entries) < MinKeys {
					st.UnderfullLeaves++
				}
				continue
			}
			st.InternalNodes++
			for _, c := range n.Children {
				if c != NilPos {
					next = append(next, c)
				}
			}
		}
		level = next
	}
	return st, nil
}

// Check verifies the structural invariants: node capacity, sorted entries,
// separators bounding their subtrees, uniform leaf depth, and a leaf chain
// that visits every leaf left to right in strictly ascending entry order.
func (t *Tree) Check() error {
	if t.nf == nil {
		return ErrTreeClosed
	}

	var (
		leaves    []int64
		leafDepth = -1
	)

	var walk func(pos int64, depth int, lo, hi *Entry) error
	walk = func(pos int64, depth int, lo, hi *Entry) error {
		n, err := t.readNode(pos)
		if err != nil {
			return err
		}
		if len(n.Entries) > MaxKeys {
			return fmt.Errorf("%w: node %d holds %d entries", ErrCheckFailed, pos, len(n.Entries))
		}
		for i, e := range n.Entries {
			if i > 0 && CompareEntries(n.Entries[i-1], e) >= 0 {
				return fmt.Errorf("%w: node %d entries out of order at %d", ErrCheckFailed, pos, i)
			}
			if lo != nil && CompareEntries(e, *lo) <= 0 {
				return fmt.Errorf("%w: node %d entry %s not above %s", ErrCheckFailed, pos, e, *lo)
			}
			if hi != nil && CompareEntries(e, *hi) > 0 {
				return fmt.Errorf("%w: node %d entry %s above %s", ErrCheckFailed, pos, e, *hi)
			}
		}

		if n.Leaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				return fmt.Errorf("%w: leaf %d at depth %d, want %d", ErrCheckFailed, pos, depth, leafDepth)
			}
			leaves = append(leaves, pos)
			return nil
		}

		if len(n.Entries) == 0 {
			return fmt.Errorf("%w: internal node %d has no separators", ErrCheckFailed, pos)
		}
		last := len(n.Children) - 1
		for i, c := range n.Children {
			if c == NilPos {
				if i == last {
					continue
				}
				return fmt.Errorf("%w: internal node %d has nil child %d", ErrCheckFailed, pos, i)
			}
			clo, chi := lo, hi
			if i > 0 {
				clo = &n.Entries[i-1]
			}
			if i < len(n.Entries) {
				chi = &n.Entries[i]
			}
			if err := walk(c, depth+1, clo, chi); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(t.root, 0, nil, nil); err != nil {
		return err
	}

	chain, err := t.leafChain()
	if err != nil {
		return err
	}
	if !slices.Equal(chain, leaves) {
		return fmt.Errorf("%w: leaf chain %v does not match tree order %v", ErrCheckFailed, chain, leaves)
	}

	var (
		prev     *Entry
		orderErr error
	)
	err = t.Scan(func(e Entry) bool {
		if prev != nil && CompareEntries(*prev, e) >= 0 {
			orderErr = fmt.Errorf("%w: leaf chain out of order at %s", ErrCheckFailed, e)
			return false
		}
		prev = &e
		return true
	})
	if err != nil {
		return err
	}
	return orderErr
}

// leafChain returns leaf positions by following Next from the leftmost leaf.
func (t *Tree) leafChain() ([]int64, error) {
	leaf, err := t.leftmostLeaf()
	if err != nil {
		return nil, err
	}
	chain := []int64{leaf.Pos}
	for leaf.Next != NilPos {
		if len(chain) > int(t.nf.RecordCount()) {
			return nil, fmt.Errorf("%w: leaf chain loops", ErrCheckFailed)
		}
		if leaf, err = t.readNode(leaf.Next); err != nil {
			return nil, err
		}
		chain = append(chain, leaf.Pos)
	}
	return chain, nil
}
