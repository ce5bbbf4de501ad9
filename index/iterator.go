package index

import (
	"cmp"

	"github.com/nihilopp/petro/storage/disk"
)

// Iterator walks a tree's leaves in ascending key order over the leaf
// chain's next_page_id links. An Iterator is not safe for concurrent use.
type Iterator[K cmp.Ordered, V any] struct {
	tree   *BPlusTree[K, V]
	leafID disk.PageID
	slot   int
	done   bool
}

// Begin returns an iterator positioned at the tree's first entry.
func (t *BPlusTree[K, V]) Begin() (*Iterator[K, V], error) {
	t.mu.RLock()
	if t.rootPageID == disk.InvalidPageID {
		t.mu.RUnlock()
		return &Iterator[K, V]{tree: t, done: true}, nil
	}

	var zero K
	leafID, _, err := t.findLeafPage(zero, true)
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	t.bpm.UnpinPage(leafID, false)

	it := &Iterator[K, V]{tree: t, leafID: leafID, slot: 0}
	it.skipEmptyLeaves()
	return it, nil
}

// BeginAt returns an iterator positioned at the first entry with a key >=
// key.
func (t *BPlusTree[K, V]) BeginAt(key K) (*Iterator[K, V], error) {
	t.mu.RLock()
	if t.rootPageID == disk.InvalidPageID {
		t.mu.RUnlock()
		return &Iterator[K, V]{tree: t, done: true}, nil
	}

	leafID, frame, err := t.findLeafPage(key, false)
	if err != nil {
		t.mu.RUnlock()
		return nil, err
	}
	leaf := t.leaf(frame.Data())
	idx, _ := leaf.FindIndex(key, t.cmp)
	t.mu.RUnlock()
	t.bpm.UnpinPage(leafID, false)

	it := &Iterator[K, V]{tree: t, leafID: leafID, slot: idx}
	it.skipEmptyLeaves()
	return it, nil
}

// IsEnd reports whether the iterator has run past the last entry.
func (it *Iterator[K, V]) IsEnd() bool {
	return it.done
}

// Key returns the entry the iterator is currently positioned at.
func (it *Iterator[K, V]) Key() K {
	var k K
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	frame, ok := it.tree.bpm.FetchPage(it.leafID)
	if !ok {
		return k
	}
	defer it.tree.bpm.UnpinPage(it.leafID, false)
	return it.tree.leaf(frame.Data()).KeyAt(it.slot)
}

// Value returns the entry the iterator is currently positioned at.
func (it *Iterator[K, V]) Value() V {
	var v V
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()
	frame, ok := it.tree.bpm.FetchPage(it.leafID)
	if !ok {
		return v
	}
	defer it.tree.bpm.UnpinPage(it.leafID, false)
	return it.tree.leaf(frame.Data()).ValueAt(it.slot)
}

// Next advances the iterator to the following entry, crossing into the
// next leaf via next_page_id if the current one is exhausted.
func (it *Iterator[K, V]) Next() {
	if it.done {
		return
	}
	it.slot++
	it.skipEmptyLeaves()
}

// skipEmptyLeaves advances across leaf boundaries until the iterator sits
// on a real entry or the chain runs out.
func (it *Iterator[K, V]) skipEmptyLeaves() {
	it.tree.mu.RLock()
	defer it.tree.mu.RUnlock()

	for {
		frame, ok := it.tree.bpm.FetchPage(it.leafID)
		if !ok {
			it.done = true
			return
		}
		leaf := it.tree.leaf(frame.Data())

		if it.slot < int(leaf.Size()) {
			it.tree.bpm.UnpinPage(it.leafID, false)
			return
		}

		next := leaf.NextPageID()
		it.tree.bpm.UnpinPage(it.leafID, false)

		if next == disk.InvalidPageID {
			it.done = true
			return
		}
		it.leafID = next
		it.slot = 0
	}
}
