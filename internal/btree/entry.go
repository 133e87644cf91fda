package btree

import (
	"cmp"
	"fmt"
	"log/slog"
	"strings"
)

// MaxKeyLen is the largest key stored; the on-disk key field holds one more
// byte for the NUL terminator.
const MaxKeyLen = 64

// Entry is one (key, value) pair. Entries are ordered by key bytes, then by
// value; two entries are equal only when both fields are.
type Entry struct {
	Key   string
	Value int32
}

func (e Entry) String() string {
	return fmt.Sprintf("(%q, %d)", e.Key, e.Value)
}

// CompareEntries is the three-way comparator used for placement in leaves
// and for routing inserts through internal nodes.
func CompareEntries(a, b Entry) int {
	if c := strings.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return cmp.Compare(a.Value, b.Value)
}

// KeyPolicy decides what happens to keys longer than MaxKeyLen.
type KeyPolicy int

const (
	// KeyTruncate cuts the key to MaxKeyLen bytes and logs a warning.
	KeyTruncate KeyPolicy = iota
	// KeyReject fails the operation with ErrKeyTooLong.
	KeyReject
)

func (p KeyPolicy) String() string {
	switch p {
	case KeyTruncate:
		return "truncate"
	case KeyReject:
		return "reject"
	default:
		return "unknown"
	}
}

func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch s {
	case "truncate", "":
		return KeyTruncate, nil
	case "reject":
		return KeyReject, nil
	default:
		return 0, fmt.Errorf("invalid key policy: %s", s)
	}
}

// NormalizeKey applies the key policy. Lookups and deletes go through the
// same path as inserts so a truncated key is found again under its long form.
// Every backend normalizes with it so they agree on which keys exist.
func (p KeyPolicy) NormalizeKey(key string) (string, error) {
	if key == "" || strings.IndexByte(key, 0) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if len(key) <= MaxKeyLen {
		return key, nil
	}
	if p == KeyReject {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrKeyTooLong, len(key), MaxKeyLen)
	}
	slog.Warn("btree.key.truncated", "len", len(key), "max", MaxKeyLen)
	return key[:MaxKeyLen], nil
}
