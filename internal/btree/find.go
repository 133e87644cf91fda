package btree

import (
	"slices"
	"strings"
)

// Find returns every value stored under key, in leaf-chain order (ascending
// by value). The result is empty when key is absent.
func (t *Tree) Find(key string) ([]int32, error) {
	target, err := t.entry(key, 0)
	if err != nil {
		return nil, err
	}
	key = target.Key

	leaf, err := t.findLeaf(key)
	if err != nil {
		return nil, err
	}

	// Values for one key may straddle a split, so keep following the chain
	// until a strictly greater key shows up.
	var out []int32
	for {
		for _, e := range leaf.Entries {
			switch c := strings.Compare(e.Key, key); {
			case c < 0:
				continue
			case c == 0:
				out = append(out, e.Value)
			default:
				return out, nil
			}
		}
		if leaf.Next == NilPos {
			return out, nil
		}
		if leaf, err = t.readNode(leaf.Next); err != nil {
			return nil, err
		}
	}
}

// findLeaf descends to the leftmost leaf that can hold key, comparing keys
// only: at each level it skips separators whose key is smaller.
func (t *Tree) findLeaf(key string) (*Node, error) {
	n, err := t.readNode(t.root)
	if err != nil {
		return nil, err
	}
	for !n.Leaf {
		i := 0
		for i < len(n.Entries) && n.Entries[i].Key < key {
			i++
		}
		if n, err = t.readNode(n.Children[i]); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// locate finds the leaf holding e using the same routing as Insert. It
// returns the leaf and e's index, or index -1 when e is absent.
func (t *Tree) locate(e Entry) (*Node, int, error) {
	n, err := t.readNode(t.root)
	if err != nil {
		return nil, -1, err
	}
	for !n.Leaf {
		if n, err = t.readNode(n.Children[childIndex(n, e)]); err != nil {
			return nil, -1, err
		}
	}

	// Leaves emptied by deletes are skipped over.
	for {
		i, found := slices.BinarySearchFunc(n.Entries, e, CompareEntries)
		if found {
			return n, i, nil
		}
		if i < len(n.Entries) || n.Next == NilPos {
			return n, -1, nil
		}
		if n, err = t.readNode(n.Next); err != nil {
			return nil, -1, err
		}
	}
}

// Scan calls fn for every entry in ascending order, walking the leaf chain
// from the leftmost leaf. It stops early when fn returns false.
func (t *Tree) Scan(fn func(Entry) bool) error {
	if t.nf == nil {
		return ErrTreeClosed
	}
	leaf, err := t.leftmostLeaf()
	if err != nil {
		return err
	}
	for {
		for _, e := range leaf.Entries {
			if !fn(e) {
				return nil
			}
		}
		if leaf.Next == NilPos {
			return nil
		}
		if leaf, err = t.readNode(leaf.Next); err != nil {
			return err
		}
	}
}

func (t *Tree) leftmostLeaf() (*Node, error) {
	n, err := t.readNode(t.root)
	if err != nil {
		return nil, err
	}
	for !n.Leaf {
		if n, err = t.readNode(n.Children[0]); err != nil {
			return nil, err
		}
	}
	return n, nil
}
