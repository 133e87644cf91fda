package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaindex/internal/bufferpool"
	"github.com/tuannm99/novaindex/pkg/bx"
)

const testRecordSize = 32

func newTestNodeFile(t *testing.T, cache bufferpool.Cache) (*NodeFile, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nodes.idx")
	nf, fresh, err := OpenNodeFile(path, testRecordSize, cache)
	require.NoError(t, err)
	require.True(t, fresh)
	t.Cleanup(func() { _ = nf.Close() })
	return nf, path
}

func record(fill byte) []byte {
	rec := make([]byte, testRecordSize)
	for i := range rec {
		rec[i] = fill
	}
	return rec
}

func TestNodeFile_Fresh_HeaderIsNil(t *testing.T) {
	nf, _ := newTestNodeFile(t, nil)

	root, err := nf.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, NilPos, root)
	require.Equal(t, int64(HeaderSize), nf.Size())
	require.Equal(t, int64(0), nf.RecordCount())
}

func TestNodeFile_Allocate_PositionsAreOffsets(t *testing.T) {
	nf, _ := newTestNodeFile(t, nil)

	for i := range 3 {
		pos, err := nf.Allocate()
		require.NoError(t, err)
		require.Equal(t, int64(HeaderSize+i*testRecordSize), pos)

		// A fresh record is zeroed apart from its own position.
		rec, err := nf.Read(pos)
		require.NoError(t, err)
		want := make([]byte, testRecordSize)
		bx.PutI64At(want, testRecordSize-SelfPosSize, pos)
		require.Equal(t, want, rec)
	}
	require.Equal(t, int64(3), nf.RecordCount())
	require.Equal(t, int64(HeaderSize+3*testRecordSize), nf.Size())
}

func TestOpenNodeFile_RecordTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.idx")
	_, _, err := OpenNodeFile(path, SelfPosSize-1, nil)
	require.ErrorIs(t, err, ErrRecordSize)
}

func TestNodeFile_WriteRead(t *testing.T) {
	for _, policy := range []bufferpool.Policy{bufferpool.PolicyNone, bufferpool.PolicyClock} {
		t.Run(string(policy), func(t *testing.T) {
			cache, err := bufferpool.NewCache(policy, 2)
			require.NoError(t, err)
			nf, _ := newTestNodeFile(t, cache)

			a, err := nf.Allocate()
			require.NoError(t, err)
			b, err := nf.Allocate()
			require.NoError(t, err)

			require.NoError(t, nf.Write(a, record(0xA)))
			require.NoError(t, nf.Write(b, record(0xB)))

			got, err := nf.Read(a)
			require.NoError(t, err)
			require.Equal(t, record(0xA), got)

			// Mutating the returned copy does not change the stored record.
			got[0] = 0xFF
			again, err := nf.Read(a)
			require.NoError(t, err)
			require.Equal(t, record(0xA), again)

			require.NoError(t, nf.Write(a, record(0xC)))
			got, err = nf.Read(a)
			require.NoError(t, err)
			require.Equal(t, record(0xC), got)
		})
	}
}

func TestNodeFile_InvalidPositions(t *testing.T) {
	nf, _ := newTestNodeFile(t, nil)

	pos, err := nf.Allocate()
	require.NoError(t, err)

	for _, bad := range []int64{-1, 0, pos + 1, pos + testRecordSize} {
		_, err := nf.Read(bad)
		require.ErrorIs(t, err, ErrInvalidPosition, "pos=%d", bad)
		require.ErrorIs(t, nf.Write(bad, record(1)), ErrInvalidPosition, "pos=%d", bad)
	}

	require.ErrorIs(t, nf.Write(pos, make([]byte, testRecordSize-1)), ErrRecordSize)
}

func TestNodeFile_Reopen_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.idx")

	nf, fresh, err := OpenNodeFile(path, testRecordSize, nil)
	require.NoError(t, err)
	require.True(t, fresh)

	pos, err := nf.Allocate()
	require.NoError(t, err)
	require.NoError(t, nf.Write(pos, record(0x5)))
	require.NoError(t, nf.WriteHeader(pos))
	require.NoError(t, nf.Close())
	require.NoError(t, nf.Close(), "second close is a no-op")

	nf, fresh, err = OpenNodeFile(path, testRecordSize, nil)
	require.NoError(t, err)
	require.False(t, fresh)
	t.Cleanup(func() { _ = nf.Close() })

	root, err := nf.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, pos, root)

	rec, err := nf.Read(root)
	require.NoError(t, err)
	require.Equal(t, record(0x5), rec)
	require.Equal(t, int64(1), nf.RecordCount())
}

func TestNodeFile_PartialRecord_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.idx")
	require.NoError(t, os.WriteFile(path, make([]byte, HeaderSize+testRecordSize/2), FileMode0644))

	_, _, err := OpenNodeFile(path, testRecordSize, nil)
	require.ErrorIs(t, err, ErrTruncatedFile)
}

func TestNodeFile_Closed(t *testing.T) {
	nf, _ := newTestNodeFile(t, nil)
	require.NoError(t, nf.Close())

	_, err := nf.Allocate()
	require.ErrorIs(t, err, ErrFileClosed)
	_, err = nf.Read(HeaderSize)
	require.ErrorIs(t, err, ErrFileClosed)
	_, err = nf.ReadHeader()
	require.ErrorIs(t, err, ErrFileClosed)
}

func TestAuxFile_OpenReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "index.dat")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), FileMode0755))
	require.NoError(t, os.WriteFile(path, []byte("leftover"), FileMode0644))

	aux, err := OpenAuxFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = aux.Close() })

	size, err := aux.Size()
	require.NoError(t, err)
	require.Equal(t, int64(8), size)

	require.NoError(t, aux.Reset())
	size, err = aux.Size()
	require.NoError(t, err)
	require.Zero(t, size)
	require.Equal(t, path, aux.Path())
}
