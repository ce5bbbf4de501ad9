package index

import "github.com/nihilopp/petro/storage/disk"

// GetValue returns the value associated with key, if present.
func (t *BPlusTree[K, V]) GetValue(key K) (V, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var zero V
	if t.rootPageID == disk.InvalidPageID {
		return zero, false, nil
	}

	leafID, frame, err := t.findLeafPage(key, false)
	if err != nil {
		return zero, false, err
	}
	leaf := t.leaf(frame.Data())

	idx, found := leaf.FindIndex(key, t.cmp)
	if !found {
		t.bpm.UnpinPage(leafID, false)
		return zero, false, nil
	}

	val := leaf.ValueAt(idx)
	t.bpm.UnpinPage(leafID, false)
	return val, true, nil
}
