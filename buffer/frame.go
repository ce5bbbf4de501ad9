package buffer

import "github.com/nihilopp/petro/storage/disk"

// FrameID names a slot in the buffer pool's frame array.
type FrameID int

// Frame is one fixed-size in-memory slot: the resident page's bytes plus
// the pin/dirty bookkeeping the pool needs to decide what's evictable. The
// whole pool is serialized by one mutex (BufferPoolManager.mu), so pinCount
// and dirty need no synchronization of their own.
type Frame struct {
	id       FrameID
	pageID   disk.PageID
	pinCount int32
	dirty    bool
	data     [disk.PageSize]byte
}

func newFrame(id FrameID) *Frame {
	return &Frame{id: id, pageID: disk.InvalidPageID}
}

// PageID returns the page currently resident in the frame, or
// disk.InvalidPageID if it holds no page.
func (f *Frame) PageID() disk.PageID { return f.pageID }

// PinCount returns how many outstanding pins the frame has.
func (f *Frame) PinCount() int32 { return f.pinCount }

// IsDirty reports whether the frame's bytes diverge from the on-disk image.
func (f *Frame) IsDirty() bool { return f.dirty }

// Data returns the frame's backing byte buffer. Callers read or write
// through it directly while the frame is pinned.
func (f *Frame) Data() []byte { return f.data[:] }

func (f *Frame) pin() {
	f.pinCount++
}

// unpin decrements the pin count and returns whether it reached zero.
func (f *Frame) unpin() bool {
	f.pinCount--
	return f.pinCount == 0
}

func (f *Frame) markDirty(dirty bool) {
	f.dirty = f.dirty || dirty
}

// reset clears resident metadata and zeros the buffer, in preparation for a
// new page occupying this frame.
func (f *Frame) reset(pageID disk.PageID) {
	f.pageID = pageID
	f.pinCount = 0
	f.dirty = false
	for i := range f.data {
		f.data[i] = 0
	}
}
