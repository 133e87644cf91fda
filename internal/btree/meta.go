package btree

import (
	"fmt"
	"log/slog"
)

// The root directory is the node file header: a single int64 holding the
// root position. It is rewritten every time the root moves and on Close.

func (t *Tree) loadRoot() (int64, error) {
	root, err := t.nf.ReadHeader()
	if err != nil {
		return 0, fmt.Errorf("load root: %w", err)
	}
	return root, nil
}

func (t *Tree) saveRoot() error {
	if err := t.nf.WriteHeader(t.root); err != nil {
		return fmt.Errorf("save root: %w", err)
	}
	slog.Debug("btree.meta.saved", "path", t.nf.Path(), "root", t.root)
	return nil
}
