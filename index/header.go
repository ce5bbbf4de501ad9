package index

import (
	"fmt"

	"github.com/nihilopp/petro/buffer"
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/storage/page"
	"github.com/nihilopp/petro/util"
)

func (t *BPlusTree[K, V]) loadHeader() (*page.HeaderPage, error) {
	guard, ok := buffer.FetchPageGuard(t.bpm, disk.HeaderPageID)
	if !ok {
		return nil, fmt.Errorf("index: %w fetching header page", util.ErrCapacityExhausted)
	}
	defer guard.Drop()

	return page.DecodeHeaderPage(guard.Data())
}

// setRootPageID persists name's new root id to the header page and updates
// the in-memory cache. Called every time root_page_id changes: new tree,
// root split, root collapse, tree emptied.
func (t *BPlusTree[K, V]) setRootPageID(id disk.PageID) error {
	guard, ok := buffer.FetchPageGuard(t.bpm, disk.HeaderPageID)
	if !ok {
		return fmt.Errorf("index: %w persisting root page id", util.ErrCapacityExhausted)
	}
	defer guard.Drop()

	header, err := page.DecodeHeaderPage(guard.Data())
	if err != nil {
		return err
	}

	header.SetRootPageID(t.name, id)
	encoded, err := header.Encode()
	if err != nil {
		return err
	}
	copy(guard.Data(), encoded)
	guard.MarkDirty()

	t.rootPageID = id
	return nil
}
