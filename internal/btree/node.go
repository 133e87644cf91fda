package btree

import (
	"fmt"

	"github.com/tuannm99/novaindex/internal/storage"
	"github.com/tuannm99/novaindex/pkg/bx"
)

const (
	MaxKeys = 100
	// MinKeys is the nominal fill after a split. Deletion does not rebalance,
	// so it is only reported by Stats.
	MinKeys = MaxKeys / 2

	NilPos = storage.NilPos
)

// Record layout (little-endian):
//
//	[leaf u8][pad 3][count i32]
//	[(MaxKeys+1) x (key [65]byte NUL-padded, value i32)]
//	[(MaxKeys+2) x child i64]
//	[next i64][self i64]
const (
	keyFieldSize = MaxKeyLen + 1
	entrySize    = keyFieldSize + 4
	entrySlots   = MaxKeys + 1
	childSlots   = MaxKeys + 2

	offLeaf     = 0
	offCount    = 4
	offEntries  = 8
	offChildren = offEntries + entrySlots*entrySize
	offNext     = offChildren + childSlots*8
	offSelf     = offNext + 8

	// The self position is the record trailer the node file stamps on
	// allocation.
	RecordSize = offSelf + storage.SelfPosSize
)

// Node is the decoded form of one record.
//
// Internal nodes carry len(Entries)+1 child positions. Children[i] holds
// entries <= Entries[i] and > Entries[i-1]. The left half of a split
// internal node keeps its last entry as an upper bound with no child to its
// right, so its trailing child slot is NilPos and is never followed.
type Node struct {
	Leaf     bool
	Entries  []Entry
	Children []int64
	Next     int64 // leaf only
	Pos      int64
}

func (n *Node) full() bool { return len(n.Entries) >= MaxKeys }

func (n *Node) validate() error {
	if len(n.Entries) > entrySlots {
		return fmt.Errorf("%w: node %d has %d entries (max: %d)", ErrCorruptNode, n.Pos, len(n.Entries), entrySlots)
	}
	if !n.Leaf && len(n.Children) != len(n.Entries)+1 {
		return fmt.Errorf("%w: node %d has %d entries and %d children", ErrCorruptNode, n.Pos, len(n.Entries), len(n.Children))
	}
	return nil
}

func encodeNode(n *Node) ([]byte, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}

	rec := make([]byte, RecordSize)
	if n.Leaf {
		rec[offLeaf] = 1
	}
	bx.PutI32At(rec, offCount, int32(len(n.Entries)))

	for i, e := range n.Entries {
		if len(e.Key) > MaxKeyLen {
			return nil, fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(e.Key))
		}
		off := offEntries + i*entrySize
		bx.PutCString(rec[off:off+keyFieldSize], []byte(e.Key))
		bx.PutI32At(rec, off+keyFieldSize, e.Value)
	}

	for i := range childSlots {
		child := NilPos
		if !n.Leaf && i < len(n.Children) {
			child = n.Children[i]
		}
		bx.PutI64At(rec, offChildren+i*8, child)
	}

	next := NilPos
	if n.Leaf {
		next = n.Next
	}
	bx.PutI64At(rec, offNext, next)
	bx.PutI64At(rec, offSelf, n.Pos)
	return rec, nil
}

func decodeNode(rec []byte) (*Node, error) {
	if len(rec) != RecordSize {
		return nil, fmt.Errorf("%w: record is %d bytes, want %d", ErrCorruptNode, len(rec), RecordSize)
	}

	n := &Node{
		Leaf: rec[offLeaf] == 1,
		Next: bx.I64At(rec, offNext),
		Pos:  bx.I64At(rec, offSelf),
	}
	if rec[offLeaf] > 1 {
		return nil, fmt.Errorf("%w: node %d has leaf flag %d", ErrCorruptNode, n.Pos, rec[offLeaf])
	}

	count := int(bx.I32At(rec, offCount))
	if count < 0 || count > entrySlots {
		return nil, fmt.Errorf("%w: node %d has count %d", ErrCorruptNode, n.Pos, count)
	}

	n.Entries = make([]Entry, count, entrySlots)
	for i := range count {
		off := offEntries + i*entrySize
		n.Entries[i] = Entry{
			Key:   string(bx.CString(rec[off : off+keyFieldSize])),
			Value: bx.I32At(rec, off+keyFieldSize),
		}
	}

	if !n.Leaf {
		n.Children = make([]int64, count+1, childSlots)
		for i := range count + 1 {
			n.Children[i] = bx.I64At(rec, offChildren+i*8)
		}
		n.Next = NilPos
	}
	return n, nil
}
