package storage

import "errors"

const (
	// HeaderSize is the root directory at the start of every node file:
	// one little-endian int64 holding the root node position.
	HeaderSize = 8

	// SelfPosSize is the trailer of every record: one little-endian int64
	// holding the record's own position, stamped by Allocate.
	SelfPosSize = 8

	// NilPos marks "no node" wherever a position is expected.
	NilPos int64 = -1
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

var (
	ErrInvalidPosition = errors.New("storage: invalid node position")
	ErrRecordSize      = errors.New("storage: record size mismatch")
	ErrTruncatedFile   = errors.New("storage: node file ends in a partial record")
	ErrFileClosed      = errors.New("storage: file is closed")
)
