package btree

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaindex/internal/bufferpool"
	"github.com/tuannm99/novaindex/internal/storage"
	"github.com/tuannm99/novaindex/pkg/bx"
)

// newTestTree opens a fresh tree in a temp dir and closes it on cleanup.
func newTestTree(t *testing.T, opts Options) (*Tree, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.idx")
	tree, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree, path
}

func seqKey(i int) string { return fmt.Sprintf("key-%05d", i) }

func insertAll(t *testing.T, tree *Tree, keys ...string) {
	t.Helper()
	for i, k := range keys {
		ok, err := tree.Insert(k, int32(i))
		require.NoError(t, err)
		require.True(t, ok, "insert %q", k)
	}
}

func TestTree_Open_FreshIsEmptyLeaf(t *testing.T) {
	tree, path := newTestTree(t, Options{})

	require.Equal(t, int64(storage.HeaderSize), tree.Root())

	h, err := tree.Height()
	require.NoError(t, err)
	require.Equal(t, 1, h)

	vals, err := tree.Find("zzz")
	require.NoError(t, err)
	require.Empty(t, vals)

	_, err = os.Stat(AuxPathFor(path))
	require.NoError(t, err, "aux data file is created next to the node file")
	require.NoError(t, tree.Check())
}

func TestTree_MultiValueKey(t *testing.T) {
	tree, _ := newTestTree(t, Options{})

	for _, v := range []int32{3, 1, 2} {
		ok, err := tree.Insert("abc", v)
		require.NoError(t, err)
		require.True(t, ok)
	}

	vals, err := tree.Find("abc")
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3}, vals)

	// Prefixes and extensions of the key are different keys.
	vals, err = tree.Find("ab")
	require.NoError(t, err)
	require.Empty(t, vals)
	vals, err = tree.Find("abcd")
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestTree_InsertSamePairTwice_IsNoop(t *testing.T) {
	tree, _ := newTestTree(t, Options{})

	ok, err := tree.Insert("k", 5)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tree.Insert("k", 5)
	require.NoError(t, err)
	require.False(t, ok)

	vals, err := tree.Find("k")
	require.NoError(t, err)
	require.Equal(t, []int32{5}, vals)

	st, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, st.Entries)
}

func TestTree_SplitAtMaxKeysPlusOne(t *testing.T) {
	tree, _ := newTestTree(t, Options{})
	firstRoot := tree.Root()

	keys := make([]string, 0, MaxKeys+1)
	for i := range MaxKeys + 1 {
		keys = append(keys, seqKey(i))
	}
	// Any insertion order ends with the same single split.
	rand.New(rand.NewPCG(1, 2)).Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	insertAll(t, tree, keys[:MaxKeys]...)
	st, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, st.Height)
	require.Equal(t, MaxKeys, st.Entries)
	require.Equal(t, firstRoot, tree.Root())

	insertAll(t, tree, keys[MaxKeys])
	st, err = tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, st.Height)
	require.Equal(t, 1, st.InternalNodes)
	require.Equal(t, 2, st.Leaves)
	require.Equal(t, MaxKeys+1, st.Entries)
	require.Equal(t, int64(3), st.Records, "one new root and one sibling")
	require.NotEqual(t, firstRoot, tree.Root())

	root, err := tree.readNode(tree.Root())
	require.NoError(t, err)
	require.False(t, root.Leaf)
	require.Len(t, root.Entries, 1)
	require.Equal(t, []int64{firstRoot, root.Children[1]}, root.Children)

	for _, k := range keys {
		vals, err := tree.Find(k)
		require.NoError(t, err)
		require.Len(t, vals, 1, "key %s", k)
	}
	require.NoError(t, tree.Check())
}

func TestTree_RootPersistedOnGrowth(t *testing.T) {
	tree, path := newTestTree(t, Options{})

	for i := range MaxKeys + 1 {
		_, err := tree.Insert(seqKey(i), 0)
		require.NoError(t, err)
	}

	// The header is current without a Close.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, tree.Root(), bx.I64(raw[:storage.HeaderSize]))
}

func TestTree_DuplicateKeySpansLeaves(t *testing.T) {
	tree, _ := newTestTree(t, Options{})

	insertAll(t, tree, "aaa", "zzz")
	want := make([]int32, 0, 250)
	for v := range int32(250) {
		ok, err := tree.Insert("dup", 1000-v)
		require.NoError(t, err)
		require.True(t, ok)
		want = append(want, 1000-v)
	}
	slices.Sort(want)

	st, err := tree.Stats()
	require.NoError(t, err)
	require.Greater(t, st.Leaves, 2, "values for one key must straddle leaves")

	vals, err := tree.Find("dup")
	require.NoError(t, err)
	require.Equal(t, want, vals)

	vals, err = tree.Find("aaa")
	require.NoError(t, err)
	require.Equal(t, []int32{0}, vals)
	vals, err = tree.Find("zzz")
	require.NoError(t, err)
	require.Equal(t, []int32{1}, vals)

	require.NoError(t, tree.Check())
}

func TestTree_RoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.idx")
	want := map[string][]int32{}

	tree, err := Open(path, Options{Cache: bufferpool.NewClockCache(32)})
	require.NoError(t, err)

	const n = 12000
	for i := range n {
		k := seqKey(i / 3)
		v := int32(i % 3 * 7)
		ok, err := tree.Insert(k, v)
		require.NoError(t, err)
		require.True(t, ok)
		want[k] = append(want[k], v)
	}
	h, err := tree.Height()
	require.NoError(t, err)
	require.GreaterOrEqual(t, h, 3)
	root := tree.Root()
	require.NoError(t, tree.Close())
	require.NoError(t, tree.Close(), "second close is a no-op")

	tree, err = Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	require.Equal(t, root, tree.Root())

	for k, vals := range want {
		got, err := tree.Find(k)
		require.NoError(t, err)
		require.Equal(t, vals, got, "key %s", k)
	}
	require.NoError(t, tree.Check())
}

func TestTree_RandomInsertsMatchMap(t *testing.T) {
	tree, _ := newTestTree(t, Options{Cache: bufferpool.NewClockCache(16)})
	rng := rand.New(rand.NewPCG(42, 7))
	want := map[string]map[int32]struct{}{}

	for range 5000 {
		k := fmt.Sprintf("k%d", rng.IntN(400))
		v := int32(rng.IntN(50)) - 25
		_, dup := want[k][v]

		ok, err := tree.Insert(k, v)
		require.NoError(t, err)
		require.Equal(t, !dup, ok)

		if want[k] == nil {
			want[k] = map[int32]struct{}{}
		}
		want[k][v] = struct{}{}
	}
	require.NoError(t, tree.Check())

	for k, set := range want {
		exp := make([]int32, 0, len(set))
		for v := range set {
			exp = append(exp, v)
		}
		slices.Sort(exp)

		got, err := tree.Find(k)
		require.NoError(t, err)
		require.Equal(t, exp, got, "key %s", k)
	}

	vals, err := tree.Find("missing")
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestTree_Scan_AscendingAndStopsEarly(t *testing.T) {
	tree, _ := newTestTree(t, Options{})
	for i := 300; i > 0; i-- {
		_, err := tree.Insert(seqKey(i%17), int32(i))
		require.NoError(t, err)
	}

	var all []Entry
	require.NoError(t, tree.Scan(func(e Entry) bool {
		all = append(all, e)
		return true
	}))
	require.Len(t, all, 300)
	require.True(t, slices.IsSortedFunc(all, CompareEntries))

	count := 0
	require.NoError(t, tree.Scan(func(Entry) bool {
		count++
		return count < 10
	}))
	require.Equal(t, 10, count)
}

func TestTree_KeyPolicies(t *testing.T) {
	long := strings.Repeat("x", MaxKeyLen) + "-tail"

	t.Run("truncate", func(t *testing.T) {
		tree, _ := newTestTree(t, Options{KeyPolicy: KeyTruncate})

		ok, err := tree.Insert(long, 1)
		require.NoError(t, err)
		require.True(t, ok)

		// Both spellings reach the truncated key.
		for _, k := range []string{long, long[:MaxKeyLen]} {
			vals, err := tree.Find(k)
			require.NoError(t, err)
			require.Equal(t, []int32{1}, vals)
		}
	})

	t.Run("reject", func(t *testing.T) {
		tree, _ := newTestTree(t, Options{KeyPolicy: KeyReject})

		_, err := tree.Insert(long, 1)
		require.ErrorIs(t, err, ErrKeyTooLong)
		_, err = tree.Find(long)
		require.ErrorIs(t, err, ErrKeyTooLong)

		st, err := tree.Stats()
		require.NoError(t, err)
		require.Zero(t, st.Entries)
	})

	t.Run("nul byte", func(t *testing.T) {
		tree, _ := newTestTree(t, Options{})
		_, err := tree.Insert("a\x00b", 1)
		require.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestTree_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.idx")
	tree, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, tree.Close())

	_, err = tree.Insert("a", 1)
	require.ErrorIs(t, err, ErrTreeClosed)
	_, err = tree.Find("a")
	require.ErrorIs(t, err, ErrTreeClosed)
	_, err = tree.Remove("a", 1)
	require.ErrorIs(t, err, ErrTreeClosed)
	require.ErrorIs(t, tree.Check(), ErrTreeClosed)
	require.ErrorIs(t, tree.Scan(func(Entry) bool { return true }), ErrTreeClosed)
}

func TestTree_Open_CorruptRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.idx")
	tree, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, tree.Close())

	// Point the root directory at a position that holds no record.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	bx.PutI64(raw, 12345)
	require.NoError(t, os.WriteFile(path, raw, storage.FileMode0644))

	_, err = Open(path, Options{})
	require.ErrorIs(t, err, storage.ErrInvalidPosition)
}

func TestTree_AllocatedNodeReadsBack(t *testing.T) {
	tree, _ := newTestTree(t, Options{})

	n, err := tree.allocNode(true)
	require.NoError(t, err)

	got, err := tree.readNode(n.Pos)
	require.NoError(t, err)
	require.Equal(t, n.Pos, got.Pos)
	require.Empty(t, got.Entries)
	require.NoError(t, tree.Check(), "an unreferenced slot does not affect the tree")
}
