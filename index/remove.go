package index

import (
	"fmt"

	"github.com/nihilopp/petro/buffer"
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/storage/page"
	"github.com/nihilopp/petro/util"
)

// Remove deletes key from the tree. Absent keys are a silent no-op.
func (t *BPlusTree[K, V]) Remove(key K) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootPageID == disk.InvalidPageID {
		return nil
	}

	leafID, frame, err := t.findLeafPage(key, false)
	if err != nil {
		return err
	}
	leaf := t.leaf(frame.Data())

	idx, found := leaf.FindIndex(key, t.cmp)
	if !found {
		t.bpm.UnpinPage(leafID, false)
		return nil
	}

	leaf.RemoveAt(idx)
	if leaf.Size() < leaf.MinSize() {
		return t.coalesceOrRedistributeLeaf(leafID, frame, leaf)
	}
	t.bpm.UnpinPage(leafID, true)
	return nil
}

func (t *BPlusTree[K, V]) findSibling(parentPage *page.InternalPage[K], nodeID disk.PageID) (siblingID disk.PageID, isRightSibling bool) {
	idx := parentPage.ValueIndex(nodeID)
	if idx == 0 {
		return parentPage.ValueAt(1), true
	}
	return parentPage.ValueAt(idx - 1), false
}

// coalesceOrRedistributeLeaf takes ownership of nodeFrame's pin: every
// return path unpins it exactly once (possibly via DeletePage, once it has
// been merged away and its pin count has dropped to zero).
func (t *BPlusTree[K, V]) coalesceOrRedistributeLeaf(nodeID disk.PageID, nodeFrame *buffer.Frame, node *page.LeafPage[K, V]) error {
	if nodeID == t.rootPageID {
		return t.adjustRootLeaf(nodeID, nodeFrame, node)
	}

	parentID := node.ParentPageID()
	parentFrame, ok := t.bpm.FetchPage(parentID)
	if !ok {
		t.bpm.UnpinPage(nodeID, true)
		return fmt.Errorf("index: %w fetching parent", util.ErrCapacityExhausted)
	}
	parentPage := t.internal(parentFrame.Data())

	siblingID, isRight := t.findSibling(parentPage, nodeID)
	siblingFrame, ok := t.bpm.FetchPage(siblingID)
	if !ok {
		t.bpm.UnpinPage(nodeID, true)
		t.bpm.UnpinPage(parentID, true)
		return fmt.Errorf("index: %w fetching sibling", util.ErrCapacityExhausted)
	}
	sibling := t.leaf(siblingFrame.Data())

	var leftID, rightID disk.PageID
	var left, right *page.LeafPage[K, V]
	if isRight {
		leftID, left = nodeID, node
		rightID, right = siblingID, sibling
	} else {
		leftID, left = siblingID, sibling
		rightID, right = nodeID, node
	}

	if int(left.Size())+int(right.Size()) <= int(t.leafMaxSize) {
		right.MoveAllTo(left)
		rIdx := parentPage.ValueIndex(rightID)
		parentPage.RemoveAt(rIdx)

		t.bpm.UnpinPage(rightID, true)
		t.bpm.DeletePage(rightID)
		t.bpm.UnpinPage(leftID, true)

		if parentPage.Size() < parentPage.MinSize() {
			return t.coalesceOrRedistributeInternal(parentID, parentFrame, parentPage)
		}
		t.bpm.UnpinPage(parentID, true)
		return nil
	}

	sepIdx := parentPage.ValueIndex(rightID)
	if isRight {
		right.MoveFirstToEndOf(left)
	} else {
		left.MoveLastToFrontOf(right)
	}
	parentPage.SetKeyAt(sepIdx, right.KeyAt(0))

	t.bpm.UnpinPage(siblingID, true)
	t.bpm.UnpinPage(nodeID, true)
	t.bpm.UnpinPage(parentID, true)
	return nil
}

// coalesceOrRedistributeInternal mirrors coalesceOrRedistributeLeaf one
// level up; it additionally has to keep moved children's parent_page_id in
// sync, since those children change which node they answer to.
func (t *BPlusTree[K, V]) coalesceOrRedistributeInternal(nodeID disk.PageID, nodeFrame *buffer.Frame, node *page.InternalPage[K]) error {
	if nodeID == t.rootPageID {
		return t.adjustRootInternal(nodeID, nodeFrame, node)
	}

	parentID := node.ParentPageID()
	parentFrame, ok := t.bpm.FetchPage(parentID)
	if !ok {
		t.bpm.UnpinPage(nodeID, true)
		return fmt.Errorf("index: %w fetching parent", util.ErrCapacityExhausted)
	}
	parentPage := t.internal(parentFrame.Data())

	siblingID, isRight := t.findSibling(parentPage, nodeID)
	siblingFrame, ok := t.bpm.FetchPage(siblingID)
	if !ok {
		t.bpm.UnpinPage(nodeID, true)
		t.bpm.UnpinPage(parentID, true)
		return fmt.Errorf("index: %w fetching sibling", util.ErrCapacityExhausted)
	}
	sibling := t.internal(siblingFrame.Data())

	var leftID, rightID disk.PageID
	var left, right *page.InternalPage[K]
	if isRight {
		leftID, left = nodeID, node
		rightID, right = siblingID, sibling
	} else {
		leftID, left = siblingID, sibling
		rightID, right = nodeID, node
	}

	sepIdx := parentPage.ValueIndex(rightID)
	separatorKey := parentPage.KeyAt(sepIdx)

	if int(left.Size())+int(right.Size()) <= int(t.internalMaxSize) {
		right.MoveAllTo(left, separatorKey)
		if err := t.reparentChildren(left); err != nil {
			t.bpm.UnpinPage(rightID, true)
			t.bpm.UnpinPage(leftID, true)
			t.bpm.UnpinPage(parentID, true)
			return err
		}

		parentPage.RemoveAt(sepIdx)

		t.bpm.UnpinPage(rightID, true)
		t.bpm.DeletePage(rightID)
		t.bpm.UnpinPage(leftID, true)

		if parentPage.Size() < parentPage.MinSize() {
			return t.coalesceOrRedistributeInternal(parentID, parentFrame, parentPage)
		}
		t.bpm.UnpinPage(parentID, true)
		return nil
	}

	if isRight {
		promotedKey := right.KeyAt(1)
		movedChild := right.ValueAt(0)
		right.MoveFirstToEndOf(left, separatorKey)
		if err := t.reparentChild(movedChild, leftID); err != nil {
			t.bpm.UnpinPage(siblingID, true)
			t.bpm.UnpinPage(nodeID, true)
			t.bpm.UnpinPage(parentID, true)
			return err
		}
		parentPage.SetKeyAt(sepIdx, promotedKey)
	} else {
		promotedKey := left.KeyAt(int(left.Size()) - 1)
		movedChild := left.ValueAt(int(left.Size()) - 1)
		left.MoveLastToFrontOf(right, separatorKey)
		if err := t.reparentChild(movedChild, rightID); err != nil {
			t.bpm.UnpinPage(siblingID, true)
			t.bpm.UnpinPage(nodeID, true)
			t.bpm.UnpinPage(parentID, true)
			return err
		}
		parentPage.SetKeyAt(sepIdx, promotedKey)
	}

	t.bpm.UnpinPage(siblingID, true)
	t.bpm.UnpinPage(nodeID, true)
	t.bpm.UnpinPage(parentID, true)
	return nil
}

// adjustRootLeaf handles the root-is-leaf case: if it's now empty, the
// tree is emptied entirely.
func (t *BPlusTree[K, V]) adjustRootLeaf(nodeID disk.PageID, nodeFrame *buffer.Frame, node *page.LeafPage[K, V]) error {
	if node.Size() > 0 {
		t.bpm.UnpinPage(nodeID, true)
		return nil
	}
	t.bpm.UnpinPage(nodeID, true)
	t.bpm.DeletePage(nodeID)
	return t.setRootPageID(disk.InvalidPageID)
}

// adjustRootInternal handles the root-is-internal case: if it's down to a
// single child, that child is promoted to be the new root.
func (t *BPlusTree[K, V]) adjustRootInternal(nodeID disk.PageID, nodeFrame *buffer.Frame, node *page.InternalPage[K]) error {
	if node.Size() != 1 {
		t.bpm.UnpinPage(nodeID, true)
		return nil
	}

	childID := node.ValueAt(0)
	if err := t.reparentChild(childID, disk.InvalidPageID); err != nil {
		t.bpm.UnpinPage(nodeID, true)
		return err
	}

	t.bpm.UnpinPage(nodeID, true)
	t.bpm.DeletePage(nodeID)
	return t.setRootPageID(childID)
}
