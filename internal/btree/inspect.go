package btree

import (
	"fmt"
	"io"
)

// Dump writes a level-by-level description of the tree to w: the root
// directory first, then every node reachable from the root.
func (t *Tree) Dump(w io.Writer) error {
	if t.nf == nil {
		return ErrTreeClosed
	}
	p := func(format string, args ...any) { fmt.Fprintf(w, format, args...) }

	p("Index file: %s\n", t.nf.Path())
	p("  Header: root pos = %d, records = %d, record size = %d\n", t.root, t.nf.RecordCount(), RecordSize)

	queue := []int64{t.root}
	for level := 0; len(queue) > 0; level++ {
		p("  Level %d:\n", level)
		size := len(queue)
		for _, pos := range queue[:size] {
			n, err := t.readNode(pos)
			if err != nil {
				p("    [pos %d] read error: %v\n", pos, err)
				continue
			}

			if !n.Leaf {
				p("    [pos %d] INTERNAL keys=%s children=%v\n", pos, formatEntries(n.Entries), n.Children)
				for _, c := range n.Children {
					if c != NilPos {
						queue = append(queue, c)
					}
				}
				continue
			}

			p("    [pos %d] LEAF count=%d next=%d\n", pos, len(n.Entries), n.Next)
			for _, e := range n.Entries {
				p("      %q -> %d\n", e.Key, e.Value)
			}
		}
		queue = queue[size:]
	}
	return nil
}

func formatEntries(entries []Entry) string {
	s := "["
	for i, e := range entries {
		if i > 0 {
			s += " "
		}
		s += e.String()
	}
	return s + "]"
}
