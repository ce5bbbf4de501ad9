package index

import (
	"os"
	"path"
	"testing"

	"github.com/nihilopp/petro/buffer"
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/storage/page"
	"github.com/nihilopp/petro/wal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int32Codec() page.Codec[int32] {
	return page.Codec[int32]{
		Width: 4,
		Encode: func(v int32, buf []byte) {
			buf[0] = byte(v)
			buf[1] = byte(v >> 8)
			buf[2] = byte(v >> 16)
			buf[3] = byte(v >> 24)
		},
		Decode: func(buf []byte) int32 {
			return int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24
		},
	}
}

func newTestBPM(t *testing.T, poolSize int) *buffer.BufferPoolManager {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")
	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	dm := disk.NewManager(file)
	scheduler := disk.NewScheduler(dm)
	return buffer.NewBufferPoolManager(poolSize, scheduler, wal.NewManager())
}

func newTestTree(t *testing.T, leafMax, internalMax int32) *BPlusTree[int32, int32] {
	t.Helper()
	bpm := newTestBPM(t, 64)
	tree, err := New[int32, int32]("primary", bpm, int32Codec(), int32Codec(), leafMax, internalMax)
	require.NoError(t, err)
	return tree
}

func collect(t *testing.T, tree *BPlusTree[int32, int32]) []int32 {
	t.Helper()
	it, err := tree.Begin()
	require.NoError(t, err)

	var out []int32
	for !it.IsEnd() {
		out = append(out, it.Key())
		it.Next()
	}
	return out
}

func TestBPlusTreeGetValue(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	for _, k := range []int32{5, 3, 8, 1, 9, 2} {
		ok, err := tree.Insert(k, k*100)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	for _, k := range []int32{5, 3, 8, 1, 9, 2} {
		v, found, err := tree.GetValue(k)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, k*100, v)
	}

	_, found, err := tree.GetValue(42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBPlusTreeDuplicateInsert(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	ok, err := tree.Insert(1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.Insert(1, 20)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, err := tree.GetValue(1)
	require.NoError(t, err)
	assert.Equal(t, int32(10), v)
}

// leaf_max = 4, internal_max = 5: the fifth insert overflows the root leaf,
// and by the seventeenth the root internal node holds six children and
// splits, driving the tree to depth 2.
func TestBPlusTreeSplitsAndGrowsDepth(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	for i := int32(1); i <= 30; i++ {
		ok, err := tree.Insert(i, i)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, makeRange(1, 30), collect(t, tree))

	for i := int32(1); i <= 30; i++ {
		v, found, err := tree.GetValue(i)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, i, v)
	}
}

func TestBPlusTreeIteratorAscendingOrder(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	order := []int32{20, 4, 17, 9, 1, 30, 15, 22, 6, 11}
	for _, k := range order {
		_, err := tree.Insert(k, k)
		require.NoError(t, err)
	}

	got := collect(t, tree)
	want := append([]int32(nil), order...)
	for i := 1; i < len(want); i++ {
		for j := i; j > 0 && want[j-1] > want[j]; j-- {
			want[j-1], want[j] = want[j], want[j-1]
		}
	}
	assert.Equal(t, want, got)
}

func TestBPlusTreeBeginAt(t *testing.T) {
	tree := newTestTree(t, 4, 5)
	for _, k := range []int32{1, 3, 5, 7, 9, 11} {
		_, err := tree.Insert(k, k)
		require.NoError(t, err)
	}

	it, err := tree.BeginAt(6)
	require.NoError(t, err)
	assert.Equal(t, int32(7), it.Key())
}

// Insert 1..100, then remove 100..1: the tree must empty out entirely and
// stay internally consistent at every step.
func TestBPlusTreeRemoveAllReverseOrder(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	for i := int32(1); i <= 100; i++ {
		ok, err := tree.Insert(i, i*2)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	for i := int32(100); i >= 1; i-- {
		require.NoError(t, tree.Remove(i))
		_, found, err := tree.GetValue(i)
		require.NoError(t, err)
		assert.False(t, found)

		for j := int32(1); j < i; j++ {
			v, found, err := tree.GetValue(j)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, j*2, v)
		}
	}

	assert.True(t, tree.IsEmpty())
	assert.Empty(t, collect(t, tree))
}

// leafKeys reads a leaf page's current key slots into a plain slice, for
// asserting exact post-redistribute contents.
func leafKeys(t *testing.T, tree *BPlusTree[int32, int32], id disk.PageID) []int32 {
	t.Helper()
	frame, ok := tree.bpm.FetchPage(id)
	require.True(t, ok)
	defer tree.bpm.UnpinPage(id, false)

	leaf := tree.leaf(frame.Data())
	out := make([]int32, leaf.Size())
	for i := range out {
		out[i] = leaf.KeyAt(i)
	}
	return out
}

// Removing one entry from a minimally-filled leaf forces a borrow from its
// left sibling (redistribute) rather than a merge. leaf_max=4 so MinSize()
// is 2; inserting 10,20,...,80 then 45 leaves three leaves under the root:
// [10,20,30], [40,45,50,60] (full, size 4) and [70,80] (size 2 == MinSize).
// Removing 80 drops the third leaf to size 1, below MinSize, and its only
// sibling is the full one to its left — too full to coalesce with (4+1=5 >
// leaf_max), so coalesceOrRedistributeLeaf must borrow the left sibling's
// last key (60) instead.
func TestBPlusTreeRemoveTriggersRedistribute(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	for _, k := range []int32{10, 20, 30, 40, 50, 60, 70, 80, 45} {
		_, err := tree.Insert(k, k)
		require.NoError(t, err)
	}

	require.NoError(t, tree.Remove(80))

	assert.Equal(t, []int32{10, 20, 30, 40, 45, 50, 60, 70}, collect(t, tree))
	for _, k := range []int32{10, 20, 30, 40, 45, 50, 60, 70} {
		_, found, err := tree.GetValue(k)
		require.NoError(t, err)
		assert.True(t, found)
	}
	_, found, err := tree.GetValue(80)
	require.NoError(t, err)
	assert.False(t, found)

	rootFrame, ok := tree.bpm.FetchPage(tree.rootPageID)
	require.True(t, ok)
	root := tree.internal(rootFrame.Data())
	middleLeafID := root.ValueAt(1)
	rightLeafID := root.ValueAt(2)
	tree.bpm.UnpinPage(tree.rootPageID, false)

	// the borrowed key (60) moved out of the middle leaf and into the
	// formerly-underflowing right leaf, and the separator tracking that
	// boundary moved with it.
	assert.Equal(t, []int32{40, 45, 50}, leafKeys(t, tree, middleLeafID))
	assert.Equal(t, []int32{60, 70}, leafKeys(t, tree, rightLeafID))

	rootFrame, ok = tree.bpm.FetchPage(tree.rootPageID)
	require.True(t, ok)
	root = tree.internal(rootFrame.Data())
	assert.Equal(t, int32(60), root.KeyAt(2))
	tree.bpm.UnpinPage(tree.rootPageID, false)
}

// Removing enough entries from a small tree forces leaf coalesces that
// shrink the parent (the root) down to a single child, which then collapses
// so the surviving leaf becomes the new root.
func TestBPlusTreeRemoveTriggersCoalesce(t *testing.T) {
	tree := newTestTree(t, 4, 5)

	for i := int32(1); i <= 12; i++ {
		_, err := tree.Insert(i, i)
		require.NoError(t, err)
	}

	for i := int32(1); i <= 9; i++ {
		require.NoError(t, tree.Remove(i))
	}

	assert.Equal(t, makeRange(10, 12), collect(t, tree))
}

func TestBPlusTreeRemoveAbsentKeyIsNoop(t *testing.T) {
	tree := newTestTree(t, 4, 5)
	_, err := tree.Insert(1, 1)
	require.NoError(t, err)

	require.NoError(t, tree.Remove(99))
	v, found, err := tree.GetValue(1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int32(1), v)
}

func TestBPlusTreeReopenPersistsRoot(t *testing.T) {
	bpm := newTestBPM(t, 64)

	tree, err := New[int32, int32]("primary", bpm, int32Codec(), int32Codec(), 4, 5)
	require.NoError(t, err)
	for i := int32(1); i <= 20; i++ {
		_, err := tree.Insert(i, i)
		require.NoError(t, err)
	}

	reopened, err := New[int32, int32]("primary", bpm, int32Codec(), int32Codec(), 4, 5)
	require.NoError(t, err)
	assert.Equal(t, makeRange(1, 20), collect(t, reopened))
}

func makeRange(lo, hi int32) []int32 {
	out := make([]int32, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
