package disk

import (
	"fmt"
	"os"
	"sync"
)

// Manager is the external collaborator the buffer pool reads and writes
// pages through. It owns the page id space (AllocatePage hands out fresh,
// monotonically increasing ids) and the mapping of those ids onto byte
// offsets in a single backing file.
type Manager struct {
	mu           sync.Mutex
	dbFile       *os.File
	offsets      map[PageID]int64
	freeOffsets  []int64
	nextPageID   PageID
	pageCapacity int64
}

// NewManager opens dbFile as the backing store for a fresh Manager. The
// caller owns dbFile's lifecycle; Close only closes the handle, it does not
// remove the file. The header page (id 0) is reserved up front so it never
// collides with an id handed out later by AllocatePage.
func NewManager(dbFile *os.File) *Manager {
	m := &Manager{
		dbFile:       dbFile,
		offsets:      make(map[PageID]int64),
		freeOffsets:  []int64{},
		pageCapacity: defaultPageCapacity,
		nextPageID:   HeaderPageID + 1,
	}
	m.offsets[HeaderPageID] = 0
	return m
}

// Close releases the backing file handle.
func (m *Manager) Close() error {
	return m.dbFile.Close()
}

// AllocatePage reserves a fresh PageID and a byte range for it in the
// backing file, growing the file if needed.
func (m *Manager) AllocatePage() PageID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextPageID
	m.nextPageID++
	m.offsets[id] = m.reserveOffset()
	return id
}

// DeallocatePage frees the byte range backing pageID for reuse. Best
// effort: unknown page ids are ignored.
func (m *Manager) DeallocatePage(pageID PageID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset, ok := m.offsets[pageID]
	if !ok {
		return
	}
	m.freeOffsets = append(m.freeOffsets, offset)
	delete(m.offsets, pageID)
}

// WritePage writes PageSize bytes of buf to pageID's slot.
func (m *Manager) WritePage(pageID PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset, ok := m.offsets[pageID]
	if !ok {
		return fmt.Errorf("disk: write to unallocated page %d", pageID)
	}
	_, err := m.dbFile.WriteAt(buf[:PageSize], offset)
	return err
}

// ReadPage reads PageSize bytes into buf from pageID's slot. A page that
// was allocated but never written reads back as zeros, since the backing
// file is sparse.
func (m *Manager) ReadPage(pageID PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset, ok := m.offsets[pageID]
	if !ok {
		return fmt.Errorf("disk: read of unallocated page %d", pageID)
	}

	n, err := m.dbFile.ReadAt(buf[:PageSize], offset)
	if err != nil && n < PageSize {
		for i := n; i < PageSize; i++ {
			buf[i] = 0
		}
	}
	return nil
}

func (m *Manager) reserveOffset() int64 {
	if n := len(m.freeOffsets); n > 0 {
		offset := m.freeOffsets[0]
		m.freeOffsets = m.freeOffsets[1:]
		return offset
	}

	if int64(len(m.offsets)+1) > m.pageCapacity {
		m.pageCapacity *= 2
		_ = m.dbFile.Truncate(m.pageCapacity * PageSize)
	}

	return int64(len(m.offsets)) * PageSize
}
