// Package memindex keeps the whole index in memory and persists it as a
// single dump file written on Close. It serves as the "memory" backend and
// as an oracle for the on-disk tree.
package memindex

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/tuannm99/novaindex/internal/btree"
	"github.com/tuannm99/novaindex/pkg/bx"
)

var (
	ErrClosed      = errors.New("memindex: index is closed")
	ErrCorruptDump = errors.New("memindex: corrupt dump file")
)

// maxKeyLen bounds key lengths read back from a dump.
const maxKeyLen = 1 << 20

// Index maps each key to a set of values. Keys are normalized with the same
// btree.KeyPolicy as the on-disk tree.
type Index struct {
	path   string
	policy btree.KeyPolicy
	data   map[string]map[int32]struct{}
}

// Open loads the dump at path. A missing file yields an empty index; the
// file is written on Close.
func Open(path string, policy btree.KeyPolicy) (*Index, error) {
	idx := &Index{path: path, policy: policy, data: make(map[string]map[int32]struct{})}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	if err := idx.load(bufio.NewReader(f)); err != nil {
		return nil, err
	}
	slog.Debug("memindex.Open", "path", path, "keys", len(idx.data))
	return idx, nil
}

func (idx *Index) load(r io.Reader) error {
	var buf [8]byte
	readU64 := func() (uint64, error) {
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		return bx.U64(buf[:8]), nil
	}

	count, err := readU64()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptDump, err)
	}

	for range count {
		klen, err := readU64()
		if err != nil {
			return fmt.Errorf("%w: key length: %v", ErrCorruptDump, err)
		}
		if klen > maxKeyLen {
			return fmt.Errorf("%w: key length %d", ErrCorruptDump, klen)
		}
		key := make([]byte, klen)
		if _, err := io.ReadFull(r, key); err != nil {
			return fmt.Errorf("%w: key: %v", ErrCorruptDump, err)
		}
		n, err := readU64()
		if err != nil {
			return fmt.Errorf("%w: value count: %v", ErrCorruptDump, err)
		}
		set := make(map[int32]struct{}, n)
		for range n {
			if _, err := io.ReadFull(r, buf[:4]); err != nil {
				return fmt.Errorf("%w: value: %v", ErrCorruptDump, err)
			}
			set[bx.I32(buf[:4])] = struct{}{}
		}
		if len(set) > 0 {
			idx.data[string(key)] = set
		}
	}
	return nil
}

// Insert adds (key, value) and reports whether it was new.
func (idx *Index) Insert(key string, value int32) (bool, error) {
	key, err := idx.key(key)
	if err != nil {
		return false, err
	}
	set, ok := idx.data[key]
	if !ok {
		set = make(map[int32]struct{})
		idx.data[key] = set
	}
	if _, dup := set[value]; dup {
		return false, nil
	}
	set[value] = struct{}{}
	return true, nil
}

// Find returns the values stored under key in ascending order.
func (idx *Index) Find(key string) ([]int32, error) {
	key, err := idx.key(key)
	if err != nil {
		return nil, err
	}
	set := idx.data[key]
	if len(set) == 0 {
		return nil, nil
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// Remove deletes (key, value). A key whose last value goes is dropped.
func (idx *Index) Remove(key string, value int32) (bool, error) {
	key, err := idx.key(key)
	if err != nil {
		return false, err
	}
	set, ok := idx.data[key]
	if !ok {
		return false, nil
	}
	if _, ok := set[value]; !ok {
		return false, nil
	}
	delete(set, value)
	if len(set) == 0 {
		delete(idx.data, key)
	}
	return true, nil
}

func (idx *Index) key(key string) (string, error) {
	if idx.data == nil {
		return "", ErrClosed
	}
	return idx.policy.NormalizeKey(key)
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int { return len(idx.data) }

// Close writes the dump file. Closing twice is a no-op.
func (idx *Index) Close() error {
	if idx.data == nil {
		return nil
	}
	err := idx.save()
	idx.data = nil
	return err
}

func (idx *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(idx.path)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}

	w := bufio.NewWriter(f)
	var buf [8]byte
	putU64 := func(v uint64) {
		bx.PutU64(buf[:8], v)
		_, _ = w.Write(buf[:8])
	}

	putU64(uint64(len(idx.data)))
	for _, key := range slices.Sorted(maps.Keys(idx.data)) {
		set := idx.data[key]
		putU64(uint64(len(key)))
		_, _ = w.WriteString(key)
		putU64(uint64(len(set)))
		for _, v := range slices.Sorted(maps.Keys(set)) {
			bx.PutI32(buf[:4], v)
			_, _ = w.Write(buf[:4])
		}
	}

	// bufio.Writer keeps the first write error and returns it from Flush.
	err = w.Flush()
	err = errors.Join(err, f.Sync(), f.Close())
	if err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	slog.Debug("memindex.Close", "path", idx.path, "keys", len(idx.data))
	return nil
}
