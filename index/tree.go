// Package index implements a B+ tree ordered index over pages fetched
// through a buffer pool: insert, remove, point lookup, and ascending
// iteration, with splits, merges and redistribution driving node sizes
// back into [min_size, max_size] as entries come and go.
package index

import (
	"cmp"
	"sync"

	"github.com/nihilopp/petro/buffer"
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/storage/page"
)

// BPlusTree is a single named index. It is safe for concurrent callers in
// the sense that every mutating operation holds mu for its duration; it
// does not implement latch-crabbing down the tree, so concurrent structural
// operations on the same tree serialize entirely rather than overlapping
// at different depths.
type BPlusTree[K cmp.Ordered, V any] struct {
	mu sync.RWMutex

	name string
	bpm  *buffer.BufferPoolManager

	keyCodec page.Codec[K]
	valCodec page.Codec[V]
	cmp      func(K, K) int

	leafMaxSize     int32
	internalMaxSize int32

	rootPageID disk.PageID
}

// New returns the named tree, reading its root page id from the header
// page. A name with no header record yet opens as an empty tree; its record
// is first written when the tree's root changes. leafMaxSize and
// internalMaxSize bound entry counts for leaf and internal nodes
// respectively; both must be at least 3 for split/coalesce arithmetic to
// leave every node within bounds.
func New[K cmp.Ordered, V any](name string, bpm *buffer.BufferPoolManager, keyCodec page.Codec[K], valCodec page.Codec[V], leafMaxSize, internalMaxSize int32) (*BPlusTree[K, V], error) {
	t := &BPlusTree[K, V]{
		name:            name,
		bpm:             bpm,
		keyCodec:        keyCodec,
		valCodec:        valCodec,
		cmp:             cmp.Compare[K],
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		rootPageID:      disk.InvalidPageID,
	}

	header, err := t.loadHeader()
	if err != nil {
		return nil, err
	}
	t.rootPageID = header.RootPageID(name)
	return t, nil
}

// WithComparator overrides the tree's default cmp.Compare ordering. Must be
// called before the tree has any entries.
func (t *BPlusTree[K, V]) WithComparator(cmp func(K, K) int) {
	t.cmp = cmp
}

// IsEmpty reports whether the tree currently holds any entries.
func (t *BPlusTree[K, V]) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootPageID == disk.InvalidPageID
}

func (t *BPlusTree[K, V]) leaf(data []byte) *page.LeafPage[K, V] {
	return page.NewLeafPage(data, t.keyCodec, t.valCodec)
}

func (t *BPlusTree[K, V]) internal(data []byte) *page.InternalPage[K] {
	return page.NewInternalPage(data, t.keyCodec)
}

func (t *BPlusTree[K, V]) isLeafPage(data []byte) bool {
	return page.CommonHeader{Data: data}.IsLeaf()
}
