// stand for bytes helper
package bx

import "encoding/binary"

var LE = binary.LittleEndian

// --- LE: read ---
func U32(b []byte) uint32 { return LE.Uint32(b) }
func U64(b []byte) uint64 { return LE.Uint64(b) }
func I32(b []byte) int32  { return int32(U32(b)) }
func I64(b []byte) int64  { return int64(U64(b)) }

// --- LE: write ---
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }
func PutU64(b []byte, v uint64) { LE.PutUint64(b, v) }
func PutI32(b []byte, v int32)  { PutU32(b, uint32(v)) }
func PutI64(b []byte, v int64)  { PutU64(b, uint64(v)) }

// --- LE: At (offset) ---
func I32At(b []byte, off int) int32        { return I32(b[off:]) }
func I64At(b []byte, off int) int64        { return I64(b[off:]) }
func PutI32At(b []byte, off int, v int32)  { PutI32(b[off:], v) }
func PutI64At(b []byte, off int, v int64)  { PutI64(b[off:], v) }
func U64At(b []byte, off int) uint64       { return U64(b[off:]) }
func PutU64At(b []byte, off int, v uint64) { PutU64(b[off:], v) }

// CString returns b up to (not including) the first NUL byte.
func CString(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// PutCString copies s into the fixed-width field b and zero-fills the rest.
// s must be shorter than b so at least one terminating NUL remains.
func PutCString(b []byte, s []byte) {
	n := copy(b, s)
	clear(b[n:])
}
