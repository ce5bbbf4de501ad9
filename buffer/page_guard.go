package buffer

import "github.com/nihilopp/petro/storage/disk"

// PageGuard wraps a FetchPage/UnpinPage pair in a single value so a caller
// can't forget the unpin. It is an internal convenience only — the pool's
// public contract is the explicit FetchPage/UnpinPage pair spec.md §4.2
// names; most of the B+ tree uses that pair directly so it can control
// exactly when dirty=true is passed (invariant T7).
type PageGuard struct {
	bpm     *BufferPoolManager
	frame   *Frame
	pageID  disk.PageID
	dirty   bool
	dropped bool
}

// FetchPageGuard fetches pageID and returns a guard over it, or ok=false if
// the pool has no frame to give.
func FetchPageGuard(bpm *BufferPoolManager, pageID disk.PageID) (*PageGuard, bool) {
	frame, ok := bpm.FetchPage(pageID)
	if !ok {
		return nil, false
	}
	return &PageGuard{bpm: bpm, frame: frame, pageID: pageID}, true
}

// Data returns the guarded frame's bytes.
func (pg *PageGuard) Data() []byte {
	return pg.frame.Data()
}

// MarkDirty flags the guarded page as dirty, to be applied when Drop unpins
// it.
func (pg *PageGuard) MarkDirty() {
	pg.dirty = true
}

// Drop unpins the guarded page. Safe to call more than once; only the first
// call has an effect.
func (pg *PageGuard) Drop() {
	if pg == nil || pg.dropped {
		return
	}
	pg.dropped = true
	pg.bpm.UnpinPage(pg.pageID, pg.dirty)
}
