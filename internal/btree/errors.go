package btree

import "errors"

var (
	ErrKeyTooLong  = errors.New("btree: key too long")
	ErrInvalidKey  = errors.New("btree: key is empty or contains NUL")
	ErrTreeClosed  = errors.New("btree: tree is closed")
	ErrCorruptNode = errors.New("btree: corrupt node")
	ErrCheckFailed = errors.New("btree: invariant violated")
)
