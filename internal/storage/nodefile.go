package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tuannm99/novaindex/internal/bufferpool"
	"github.com/tuannm99/novaindex/pkg/bx"
)

// NodeFile stores fixed-size node records back to back after an 8-byte
// header. A record is addressed by its byte offset ("position"), so
// position = HeaderSize + allocationOrder*recordSize. Records are only ever
// appended; there is no free list. The last SelfPosSize bytes of each record
// hold the record's own position.
type NodeFile struct {
	mu         sync.RWMutex
	file       *os.File
	path       string
	recordSize int
	size       int64 // end of the last allocated record
	cache      bufferpool.Cache
}

// OpenNodeFile opens or creates the node file at path. fresh reports that
// the file did not exist or held no header, in which case it is reset to a
// zeroed header and no records. cache may be nil.
func OpenNodeFile(path string, recordSize int, cache bufferpool.Cache) (*NodeFile, bool, error) {
	if recordSize < SelfPosSize {
		return nil, false, fmt.Errorf("%w: %d", ErrRecordSize, recordSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), FileMode0755); err != nil {
		return nil, false, err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, false, fmt.Errorf("open node file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, false, fmt.Errorf("stat node file: %w", err)
	}

	nf := &NodeFile{
		file:       file,
		path:       path,
		recordSize: recordSize,
		size:       info.Size(),
		cache:      cache,
	}

	fresh := info.Size() < HeaderSize
	if fresh {
		if err := nf.reset(); err != nil {
			_ = file.Close()
			return nil, false, err
		}
		slog.Debug("storage.NodeFile.created", "path", path, "recordSize", recordSize)
		return nf, true, nil
	}

	if (nf.size-HeaderSize)%int64(recordSize) != 0 {
		_ = file.Close()
		return nil, false, fmt.Errorf("%w: %s has %d bytes", ErrTruncatedFile, path, nf.size)
	}

	slog.Debug("storage.NodeFile.opened",
		"path", path,
		"records", nf.RecordCount(),
	)
	return nf, false, nil
}

func (nf *NodeFile) reset() error {
	if err := nf.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate node file: %w", err)
	}
	var hdr [HeaderSize]byte
	bx.PutI64(hdr[:], NilPos)
	if _, err := nf.file.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("write node file header: %w", err)
	}
	nf.size = HeaderSize
	return nil
}

// checkPos validates that pos addresses an allocated record. Caller holds mu.
func (nf *NodeFile) checkPos(pos int64) error {
	if pos < HeaderSize || (pos-HeaderSize)%int64(nf.recordSize) != 0 || pos+int64(nf.recordSize) > nf.size {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	return nil
}

// Allocate appends one record and returns its position. The record is
// zeroed except for its self position trailer.
func (nf *NodeFile) Allocate() (int64, error) {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if nf.file == nil {
		return 0, ErrFileClosed
	}

	pos := nf.size
	rec := make([]byte, nf.recordSize)
	bx.PutI64At(rec, nf.recordSize-SelfPosSize, pos)
	if _, err := nf.file.WriteAt(rec, pos); err != nil {
		return 0, fmt.Errorf("allocate record at %d: %w", pos, err)
	}
	nf.size += int64(nf.recordSize)

	slog.Debug("storage.NodeFile.Allocate", "pos", pos)
	return pos, nil
}

// Read returns a copy of the record at pos.
func (nf *NodeFile) Read(pos int64) ([]byte, error) {
	nf.mu.RLock()
	defer nf.mu.RUnlock()

	if nf.file == nil {
		return nil, ErrFileClosed
	}
	if err := nf.checkPos(pos); err != nil {
		return nil, err
	}

	if nf.cache != nil {
		if rec, ok := nf.cache.Get(pos); ok {
			return rec, nil
		}
	}

	rec := make([]byte, nf.recordSize)
	if _, err := nf.file.ReadAt(rec, pos); err != nil {
		return nil, fmt.Errorf("read record at %d: %w", pos, err)
	}
	if nf.cache != nil {
		nf.cache.Put(pos, rec)
	}
	return rec, nil
}

// Write overwrites the whole record at pos.
func (nf *NodeFile) Write(pos int64, rec []byte) error {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if nf.file == nil {
		return ErrFileClosed
	}
	if len(rec) != nf.recordSize {
		return fmt.Errorf("%w: got %d, want %d", ErrRecordSize, len(rec), nf.recordSize)
	}
	if err := nf.checkPos(pos); err != nil {
		return err
	}

	n, err := nf.file.WriteAt(rec, pos)
	if err != nil {
		if nf.cache != nil {
			nf.cache.Invalidate(pos)
		}
		return fmt.Errorf("write record at %d: %w", pos, err)
	}
	if n != nf.recordSize {
		return io.ErrShortWrite
	}
	if nf.cache != nil {
		nf.cache.Put(pos, rec)
	}
	return nil
}

// ReadHeader returns the root position stored in the header.
func (nf *NodeFile) ReadHeader() (int64, error) {
	nf.mu.RLock()
	defer nf.mu.RUnlock()

	if nf.file == nil {
		return 0, ErrFileClosed
	}
	var hdr [HeaderSize]byte
	if _, err := nf.file.ReadAt(hdr[:], 0); err != nil {
		return 0, fmt.Errorf("read node file header: %w", err)
	}
	return bx.I64(hdr[:]), nil
}

// WriteHeader stores root in the header.
func (nf *NodeFile) WriteHeader(root int64) error {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if nf.file == nil {
		return ErrFileClosed
	}
	var hdr [HeaderSize]byte
	bx.PutI64(hdr[:], root)
	if _, err := nf.file.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("write node file header: %w", err)
	}
	return nil
}

func (nf *NodeFile) Sync() error {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if nf.file == nil {
		return ErrFileClosed
	}
	return nf.file.Sync()
}

// Close syncs and closes the file. Closing twice is a no-op.
func (nf *NodeFile) Close() error {
	nf.mu.Lock()
	defer nf.mu.Unlock()

	if nf.file == nil {
		return nil
	}
	if nf.cache != nil {
		nf.cache.Close()
	}

	syncErr := nf.file.Sync()
	closeErr := nf.file.Close()
	nf.file = nil
	return errors.Join(syncErr, closeErr)
}

// RecordCount returns how many records have been allocated.
func (nf *NodeFile) RecordCount() int64 {
	nf.mu.RLock()
	defer nf.mu.RUnlock()
	return (nf.size - HeaderSize) / int64(nf.recordSize)
}

func (nf *NodeFile) RecordSize() int { return nf.recordSize }

func (nf *NodeFile) Size() int64 {
	nf.mu.RLock()
	defer nf.mu.RUnlock()
	return nf.size
}

func (nf *NodeFile) Path() string { return nf.path }
