package btree

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tuannm99/novaindex/internal/bufferpool"
	"github.com/tuannm99/novaindex/internal/storage"
)

// Options configures a Tree. The zero value truncates long keys, deletes
// from the root node only and runs without a record cache.
type Options struct {
	KeyPolicy  KeyPolicy
	DeleteMode DeleteMode
	// AuxPath overrides the auxiliary data file location; by default it sits
	// next to the node file with a ".dat" extension.
	AuxPath string
	Cache   bufferpool.Cache
}

// Tree is a disk-resident B+Tree mapping string keys to sets of int32
// values. Nodes live in a storage.NodeFile and are addressed by their byte
// offset. A Tree is not safe for concurrent use.
type Tree struct {
	nf   *storage.NodeFile
	aux  *storage.AuxFile
	root int64
	opts Options
}

// AuxPathFor returns the default auxiliary data file path for nodePath.
func AuxPathFor(nodePath string) string {
	return strings.TrimSuffix(nodePath, filepath.Ext(nodePath)) + ".dat"
}

// Open opens the index stored at nodePath. Missing files are created and
// the tree starts as a single empty leaf.
func Open(nodePath string, opts Options) (*Tree, error) {
	nf, fresh, err := storage.OpenNodeFile(nodePath, RecordSize, opts.Cache)
	if err != nil {
		return nil, err
	}

	auxPath := opts.AuxPath
	if auxPath == "" {
		auxPath = AuxPathFor(nodePath)
	}
	aux, err := storage.OpenAuxFile(auxPath)
	if err != nil {
		_ = nf.Close()
		return nil, err
	}

	t := &Tree{nf: nf, aux: aux, root: NilPos, opts: opts}
	if err := t.init(fresh); err != nil {
		_ = aux.Close()
		_ = nf.Close()
		return nil, err
	}

	slog.Debug("btree.Open",
		"path", nodePath,
		"fresh", fresh,
		"root", t.root,
		"records", nf.RecordCount(),
	)
	return t, nil
}

func (t *Tree) init(fresh bool) error {
	if fresh {
		if err := t.aux.Reset(); err != nil {
			return err
		}
	} else {
		root, err := t.loadRoot()
		if err != nil {
			return err
		}
		t.root = root
	}

	// A header without a root means the file was created but the first
	// leaf never made it to disk.
	if t.root == NilPos {
		leaf, err := t.allocNode(true)
		if err != nil {
			return err
		}
		if err := t.writeNode(leaf); err != nil {
			return err
		}
		t.root = leaf.Pos
		return t.saveRoot()
	}

	_, err := t.readNode(t.root)
	return err
}

// Close persists the root position and closes both files.
func (t *Tree) Close() error {
	if t.nf == nil {
		return nil
	}
	err := t.saveRoot()
	err = errors.Join(err, t.aux.Close(), t.nf.Close())
	t.nf = nil
	t.aux = nil
	return err
}

// Root returns the current root position.
func (t *Tree) Root() int64 { return t.root }

// Height returns the number of levels, 1 for a single leaf.
func (t *Tree) Height() (int, error) {
	if t.nf == nil {
		return 0, ErrTreeClosed
	}
	h := 1
	n, err := t.readNode(t.root)
	for err == nil && !n.Leaf {
		h++
		n, err = t.readNode(n.Children[0])
	}
	return h, err
}

// allocNode reserves a record. The node file stamps its position, so the
// slot reads back as an empty node until the first write.
func (t *Tree) allocNode(leaf bool) (*Node, error) {
	pos, err := t.nf.Allocate()
	if err != nil {
		return nil, err
	}
	return &Node{
		Leaf:    leaf,
		Entries: make([]Entry, 0, entrySlots),
		Next:    NilPos,
		Pos:     pos,
	}, nil
}

func (t *Tree) readNode(pos int64) (*Node, error) {
	if pos == NilPos {
		return nil, fmt.Errorf("%w: nil child followed", ErrCorruptNode)
	}
	rec, err := t.nf.Read(pos)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(rec)
	if err != nil {
		return nil, err
	}
	if n.Pos != pos {
		return nil, fmt.Errorf("%w: record at %d claims position %d", ErrCorruptNode, pos, n.Pos)
	}
	return n, nil
}

func (t *Tree) writeNode(n *Node) error {
	rec, err := encodeNode(n)
	if err != nil {
		return err
	}
	return t.nf.Write(n.Pos, rec)
}

func (t *Tree) entry(key string, value int32) (Entry, error) {
	if t.nf == nil {
		return Entry{}, ErrTreeClosed
	}
	k, err := t.opts.KeyPolicy.NormalizeKey(key)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Key: k, Value: value}, nil
}
