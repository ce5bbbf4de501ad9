package page

import (
	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/util"
)

// HeaderPage holds every named index's root page id. It lives at
// disk.HeaderPageID and, unlike the node pages above, has no fixed-offset
// requirement — callers add and remove indexes one at a time, so a
// self-describing codec (msgpack) is a better fit than a fixed slot table.
type HeaderPage struct {
	Roots map[string]disk.PageID
}

// NewHeaderPage returns an empty HeaderPage.
func NewHeaderPage() *HeaderPage {
	return &HeaderPage{Roots: make(map[string]disk.PageID)}
}

// DecodeHeaderPage reads a HeaderPage back out of a frame's bytes. A
// never-written page (all zeros) decodes to an empty HeaderPage.
func DecodeHeaderPage(data []byte) (*HeaderPage, error) {
	h, err := util.ToStruct[HeaderPage](data)
	if err != nil {
		return nil, err
	}
	if h.Roots == nil {
		h.Roots = make(map[string]disk.PageID)
	}
	return &h, nil
}

// Encode msgpack-encodes h into a page-sized buffer.
func (h *HeaderPage) Encode() ([]byte, error) {
	return util.ToByteSlice(*h)
}

// RootPageID returns the root page id registered for name, or
// disk.InvalidPageID if name has no tree yet.
func (h *HeaderPage) RootPageID(name string) disk.PageID {
	if id, ok := h.Roots[name]; ok {
		return id
	}
	return disk.InvalidPageID
}

// SetRootPageID records or updates name's root page id.
func (h *HeaderPage) SetRootPageID(name string, id disk.PageID) {
	h.Roots[name] = id
}
