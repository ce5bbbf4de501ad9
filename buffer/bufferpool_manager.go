package buffer

import (
	"sync"

	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/wal"
)

// BufferPoolManager is the single point of contact between the index and
// disk: a fixed array of Frames, a page table mapping resident PageIDs onto
// frame slots, a free list of frames holding no page, and a Replacer tracking
// eviction candidates among the rest. Every operation below runs under mu;
// disk I/O happens while holding it, per spec — simple and correct, at the
// cost of throughput.
type BufferPoolManager struct {
	mu sync.Mutex

	frames    []*Frame
	pageTable map[disk.PageID]FrameID
	freeList  []FrameID
	replacer  *Replacer

	scheduler *disk.Scheduler
	log       *wal.Manager
}

// NewBufferPoolManager allocates poolSize frames over scheduler.
func NewBufferPoolManager(poolSize int, scheduler *disk.Scheduler, log *wal.Manager) *BufferPoolManager {
	frames := make([]*Frame, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := range frames {
		frames[i] = newFrame(FrameID(i))
		freeList[i] = FrameID(i)
	}

	bpm := &BufferPoolManager{
		frames:    frames,
		pageTable: make(map[disk.PageID]FrameID),
		freeList:  freeList,
		replacer:  NewReplacer(),
		scheduler: scheduler,
		log:       log,
	}
	return bpm
}

// FetchPage pins page_id and returns the Frame holding it, reading it from
// disk if it wasn't already resident. It returns ok=false only when every
// frame is pinned and none can be evicted.
func (b *BufferPoolManager) FetchPage(pageID disk.PageID) (*Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		frame := b.frames[frameID]
		b.replacer.Pin(frameID)
		frame.pin()
		return frame, true
	}

	frameID, ok := b.obtainFrame()
	if !ok {
		return nil, false
	}

	frame := b.frames[frameID]
	b.pageTable[pageID] = frameID
	frame.reset(pageID)
	frame.pin()
	b.replacer.Pin(frameID)

	resp := <-b.scheduler.Schedule(disk.NewReadRequest(pageID))
	if resp.Success {
		copy(frame.Data(), resp.Data)
	}

	return frame, true
}

// UnpinPage releases one pin on page_id and ORs isDirty into its dirty bit.
// Returns false if page_id is not resident.
func (b *BufferPoolManager) UnpinPage(pageID disk.PageID, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}

	frame := b.frames[frameID]
	frame.markDirty(isDirty)
	if frame.pinCount > 0 {
		if frame.unpin() {
			b.replacer.Unpin(frameID)
		}
	}

	return true
}

// FlushPage writes page_id's bytes to disk and clears its dirty bit,
// without touching its pin count. Returns false if page_id isn't resident.
func (b *BufferPoolManager) FlushPage(pageID disk.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pageID == disk.InvalidPageID {
		return false
	}
	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}

	b.flush(b.frames[frameID])
	return true
}

// NewPage allocates a fresh on-disk page and returns a Frame for it,
// already pinned once. Returns ok=false if no frame could be evicted.
func (b *BufferPoolManager) NewPage() (disk.PageID, *Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.obtainFrame()
	if !ok {
		return disk.InvalidPageID, nil, false
	}

	pageID := b.scheduler.AllocatePage()
	frame := b.frames[frameID]
	b.pageTable[pageID] = frameID
	frame.reset(pageID)
	frame.pin()
	b.replacer.Pin(frameID)

	return pageID, frame, true
}

// DeletePage deallocates page_id, flushing it first if dirty. It is
// idempotent on an absent page and refuses to delete a pinned one.
func (b *BufferPoolManager) DeletePage(pageID disk.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pageID == disk.InvalidPageID {
		return true
	}
	frameID, ok := b.pageTable[pageID]
	if !ok {
		return true
	}

	frame := b.frames[frameID]
	if frame.pinCount > 0 {
		return false
	}

	if frame.dirty {
		b.flush(frame)
	}

	b.scheduler.DeallocatePage(pageID)
	delete(b.pageTable, pageID)
	b.replacer.Pin(frameID)
	frame.reset(disk.InvalidPageID)
	b.freeList = append(b.freeList, frameID)

	return true
}

// FlushAllPages flushes every resident page.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, frame := range b.frames {
		if frame.pageID != disk.InvalidPageID {
			b.flush(frame)
		}
	}
}

// obtainFrame returns a frame to reuse: from the free list first, else the
// replacer's victim, flushing it first if dirty. Callers hold mu.
func (b *BufferPoolManager) obtainFrame() (FrameID, bool) {
	if n := len(b.freeList); n > 0 {
		id := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return id, true
	}

	frameID, ok := b.replacer.Victim()
	if !ok {
		return 0, false
	}

	victim := b.frames[frameID]
	if victim.dirty {
		b.flush(victim)
	}
	delete(b.pageTable, victim.pageID)
	return frameID, true
}

func (b *BufferPoolManager) flush(frame *Frame) {
	resp := <-b.scheduler.Schedule(disk.NewWriteRequest(frame.pageID, append([]byte(nil), frame.Data()...)))
	if resp.Success {
		frame.dirty = false
	}
}
