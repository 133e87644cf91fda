package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClockCache_PutGet_CopiesBytes(t *testing.T) {
	c := NewClockCache(4)

	rec := []byte{1, 2, 3}
	c.Put(8, rec)
	rec[0] = 9 // caller mutation must not leak into the cache

	got, ok := c.Get(8)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 7 // neither must mutation of a returned copy
	again, ok := c.Get(8)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, again)
}

func TestClockCache_Put_OverwritesExisting(t *testing.T) {
	c := NewClockCache(2)

	c.Put(8, []byte("old"))
	c.Put(8, []byte("new"))

	got, ok := c.Get(8)
	require.True(t, ok)
	require.Equal(t, []byte("new"), got)
	require.Equal(t, 1, c.Len())
}

func TestClockCache_Full_EvictsOne(t *testing.T) {
	c := NewClockCache(2)

	c.Put(8, []byte("a"))
	c.Put(16, []byte("b"))
	c.Put(24, []byte("c"))

	require.Equal(t, 2, c.Len())

	_, ok := c.Get(24)
	require.True(t, ok, "most recent record must be cached")

	_, okA := c.Get(8)
	_, okB := c.Get(16)
	require.NotEqual(t, okA, okB, "exactly one older record is evicted")
}

func TestClockCache_Invalidate(t *testing.T) {
	c := NewClockCache(2)

	c.Put(8, []byte("a"))
	c.Invalidate(8)
	c.Invalidate(99) // unknown position is fine

	_, ok := c.Get(8)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())

	// The freed frame is reused without eviction.
	c.Put(16, []byte("b"))
	c.Put(24, []byte("c"))
	require.Equal(t, 2, c.Len())
}

func TestClockCache_Close_Empties(t *testing.T) {
	c := NewClockCache(2)
	c.Put(8, []byte("a"))
	c.Close()

	_, ok := c.Get(8)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}
