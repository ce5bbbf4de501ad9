package index

import (
	"fmt"

	"github.com/nihilopp/petro/buffer"
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/storage/page"
	"github.com/nihilopp/petro/util"
)

// Insert adds key/value to the tree. It returns false, with no error, if
// key is already present.
func (t *BPlusTree[K, V]) Insert(key K, val V) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootPageID == disk.InvalidPageID {
		pageID, frame, ok := t.bpm.NewPage()
		if !ok {
			return false, fmt.Errorf("index: %w starting new tree", util.ErrCapacityExhausted)
		}

		leaf := t.leaf(frame.Data())
		leaf.Init(pageID, disk.InvalidPageID, t.leafMaxSize)
		leaf.InsertAt(0, key, val)
		t.bpm.UnpinPage(pageID, true)

		if err := t.setRootPageID(pageID); err != nil {
			return false, err
		}
		return true, nil
	}

	leafID, frame, err := t.findLeafPage(key, false)
	if err != nil {
		return false, err
	}
	leaf := t.leaf(frame.Data())

	idx, found := leaf.FindIndex(key, t.cmp)
	if found {
		t.bpm.UnpinPage(leafID, false)
		return false, nil
	}

	leaf.InsertAt(idx, key, val)
	if leaf.Size() <= t.leafMaxSize {
		t.bpm.UnpinPage(leafID, true)
		return true, nil
	}

	newLeafID, newFrame, ok := t.bpm.NewPage()
	if !ok {
		t.bpm.UnpinPage(leafID, true)
		return false, fmt.Errorf("index: %w splitting leaf", util.ErrCapacityExhausted)
	}
	newLeaf := t.leaf(newFrame.Data())
	newLeaf.Init(newLeafID, leaf.ParentPageID(), t.leafMaxSize)
	leaf.MoveHalfTo(newLeaf)
	promotedKey := newLeaf.KeyAt(0)

	if err := t.insertIntoParent(leafID, frame, leaf.ParentPageID(), promotedKey, newLeafID, newFrame); err != nil {
		t.bpm.UnpinPage(leafID, true)
		return false, err
	}
	t.bpm.UnpinPage(leafID, true)
	return true, nil
}

// insertIntoParent installs the separator key for new between old and
// new's left neighbor in old's parent, splitting that parent if it
// overflows and recursing. newFrame's pin is transferred in: this function
// unpins it exactly once, on every return path. oldFrame's pin is NOT
// transferred; the caller keeps and releases it.
func (t *BPlusTree[K, V]) insertIntoParent(oldID disk.PageID, oldFrame *buffer.Frame, parentID disk.PageID, key K, newID disk.PageID, newFrame *buffer.Frame) error {
	if parentID == disk.InvalidPageID {
		newRootID, newRootFrame, ok := t.bpm.NewPage()
		if !ok {
			t.bpm.UnpinPage(newID, true)
			return fmt.Errorf("index: %w allocating new root", util.ErrCapacityExhausted)
		}

		newRoot := t.internal(newRootFrame.Data())
		newRoot.Init(newRootID, disk.InvalidPageID, t.internalMaxSize)
		newRoot.PopulateNewRoot(oldID, key, newID)

		page.CommonHeader{Data: oldFrame.Data()}.SetParentPageID(newRootID)
		page.CommonHeader{Data: newFrame.Data()}.SetParentPageID(newRootID)

		if err := t.setRootPageID(newRootID); err != nil {
			t.bpm.UnpinPage(newRootID, true)
			t.bpm.UnpinPage(newID, true)
			return err
		}
		t.bpm.UnpinPage(newRootID, true)
		t.bpm.UnpinPage(newID, true)
		return nil
	}

	page.CommonHeader{Data: newFrame.Data()}.SetParentPageID(parentID)
	t.bpm.UnpinPage(newID, true)

	parentFrame, ok := t.bpm.FetchPage(parentID)
	if !ok {
		return fmt.Errorf("index: %w fetching parent", util.ErrCapacityExhausted)
	}
	parentPage := t.internal(parentFrame.Data())

	oldIdx := parentPage.ValueIndex(oldID)
	parentPage.InsertAt(oldIdx+1, key, newID)

	if parentPage.Size() <= t.internalMaxSize {
		t.bpm.UnpinPage(parentID, true)
		return nil
	}

	return t.splitInternal(parentID, parentFrame, parentPage)
}

// splitInternal moves the upper half of an overflowing internal node's
// entries into a fresh sibling, reparents the children that moved, and
// recurses insertIntoParent one level up.
func (t *BPlusTree[K, V]) splitInternal(id disk.PageID, frame *buffer.Frame, node *page.InternalPage[K]) error {
	siblingID, siblingFrame, ok := t.bpm.NewPage()
	if !ok {
		t.bpm.UnpinPage(id, true)
		return fmt.Errorf("index: %w allocating sibling internal node", util.ErrCapacityExhausted)
	}
	sibling := t.internal(siblingFrame.Data())
	sibling.Init(siblingID, node.ParentPageID(), t.internalMaxSize)

	node.MoveHalfTo(sibling)
	promotedKey := sibling.KeyAt(0)

	if err := t.reparentChildren(sibling); err != nil {
		t.bpm.UnpinPage(id, true)
		t.bpm.UnpinPage(siblingID, true)
		return err
	}

	if err := t.insertIntoParent(id, frame, node.ParentPageID(), promotedKey, siblingID, siblingFrame); err != nil {
		t.bpm.UnpinPage(id, true)
		return err
	}
	t.bpm.UnpinPage(id, true)
	return nil
}

// reparentChildren fixes every child in node's slot range to point back at
// node, used after entries are moved into node from elsewhere.
func (t *BPlusTree[K, V]) reparentChildren(node *page.InternalPage[K]) error {
	for i := 0; i < int(node.Size()); i++ {
		if err := t.reparentChild(node.ValueAt(i), node.PageID()); err != nil {
			return err
		}
	}
	return nil
}

func (t *BPlusTree[K, V]) reparentChild(childID, newParentID disk.PageID) error {
	childFrame, ok := t.bpm.FetchPage(childID)
	if !ok {
		return fmt.Errorf("index: %w reparenting child", util.ErrCapacityExhausted)
	}
	page.CommonHeader{Data: childFrame.Data()}.SetParentPageID(newParentID)
	t.bpm.UnpinPage(childID, true)
	return nil
}
