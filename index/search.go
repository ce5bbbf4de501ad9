package index

import (
	"fmt"

	"github.com/nihilopp/petro/buffer"
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/util"
)

// findLeafPage descends from the root to the leaf that would hold key. Each
// internal page along the way is fetched and unpinned through a PageGuard —
// it's read, never mutated, and dropped before moving to the child, which is
// exactly the fetch/use/unpin lifetime PageGuard exists for. If leftMost is
// true the descent always takes child 0, regardless of key — used by
// Begin() to find the tree's first leaf. The leaf itself outlives this
// function's scope (the caller unpins it), so it's returned as a raw,
// caller-owned Frame rather than a guard.
func (t *BPlusTree[K, V]) findLeafPage(key K, leftMost bool) (disk.PageID, *buffer.Frame, error) {
	currID := t.rootPageID

	for {
		guard, ok := buffer.FetchPageGuard(t.bpm, currID)
		if !ok {
			return disk.InvalidPageID, nil, fmt.Errorf("index: %w descending to leaf", util.ErrCapacityExhausted)
		}

		if t.isLeafPage(guard.Data()) {
			guard.Drop()
			frame, ok := t.bpm.FetchPage(currID)
			if !ok {
				return disk.InvalidPageID, nil, fmt.Errorf("index: %w re-fetching leaf", util.ErrCapacityExhausted)
			}
			return currID, frame, nil
		}

		node := t.internal(guard.Data())
		childIdx := 0
		if !leftMost {
			childIdx = node.FindChildIndex(key, t.cmp)
		}
		childID := node.ValueAt(childIdx)

		guard.Drop()
		currID = childID
	}
}
