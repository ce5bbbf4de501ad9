// Package page defines the bit-exact byte layout B+ tree pages are written
// in: a common header every page starts with, and the internal/leaf slot
// layouts that follow it. Pages are views over a frame's raw bytes, not
// copies — fields are read and written directly at their fixed offsets via
// encoding/binary, the same way a frame's bytes are reinterpreted in place
// rather than deserialized into a separate struct.
package page

import (
	"encoding/binary"

	"github.com/nihilopp/petro/storage/disk"
)

// Type distinguishes an internal node from a leaf node.
type Type int32

const (
	Invalid Type = iota
	Internal
	Leaf
)

const (
	offPageType     = 0
	offSize         = 4
	offMaxSize      = 8
	offParentPageID = 12
	offPageID       = 16
	offLSN          = 20

	// HeaderSize is the number of bytes every page's common header
	// occupies: six 4-byte fields (page_type, size, max_size,
	// parent_page_id, page_id, lsn).
	HeaderSize = 24
)

var order = binary.LittleEndian

// CommonHeader is the fixed 24-byte prefix shared by every B+ tree page.
// It wraps a frame's raw buffer; all reads and writes go straight through
// to that buffer.
type CommonHeader struct {
	Data []byte
}

func (h CommonHeader) PageType() Type {
	return Type(order.Uint32(h.Data[offPageType:]))
}

func (h CommonHeader) SetPageType(t Type) {
	order.PutUint32(h.Data[offPageType:], uint32(t))
}

func (h CommonHeader) Size() int32 {
	return int32(order.Uint32(h.Data[offSize:]))
}

func (h CommonHeader) SetSize(n int32) {
	order.PutUint32(h.Data[offSize:], uint32(n))
}

func (h CommonHeader) MaxSize() int32 {
	return int32(order.Uint32(h.Data[offMaxSize:]))
}

func (h CommonHeader) SetMaxSize(n int32) {
	order.PutUint32(h.Data[offMaxSize:], uint32(n))
}

func (h CommonHeader) ParentPageID() disk.PageID {
	return disk.PageID(int32(order.Uint32(h.Data[offParentPageID:])))
}

func (h CommonHeader) SetParentPageID(id disk.PageID) {
	order.PutUint32(h.Data[offParentPageID:], uint32(int32(id)))
}

func (h CommonHeader) PageID() disk.PageID {
	return disk.PageID(int32(order.Uint32(h.Data[offPageID:])))
}

func (h CommonHeader) SetPageID(id disk.PageID) {
	order.PutUint32(h.Data[offPageID:], uint32(int32(id)))
}

func (h CommonHeader) LSN() int32 {
	return int32(order.Uint32(h.Data[offLSN:]))
}

func (h CommonHeader) SetLSN(n int32) {
	order.PutUint32(h.Data[offLSN:], uint32(n))
}

func (h CommonHeader) IsLeaf() bool {
	return h.PageType() == Leaf
}

// MinSize is ceil(max_size/2) for internal nodes, ceil((max_size-1)/2) for
// leaves, per the data model's stated convention.
func (h CommonHeader) MinSize() int32 {
	if h.IsLeaf() {
		return (h.MaxSize() - 1 + 1) / 2
	}
	return (h.MaxSize() + 1) / 2
}

// Codec is a fixed-width encoder/decoder for a page slot field. Width must
// be constant across every value of T, since slot offsets are computed
// arithmetically from it — there is no room in a bit-exact layout for a
// self-describing encoding.
type Codec[T any] struct {
	Width  int
	Encode func(T, []byte)
	Decode func([]byte) T
}

// PageIDCodec is the fixed-width codec internal node child pointers use.
var PageIDCodec = Codec[disk.PageID]{
	Width: 4,
	Encode: func(id disk.PageID, buf []byte) {
		order.PutUint32(buf, uint32(int32(id)))
	},
	Decode: func(buf []byte) disk.PageID {
		return disk.PageID(int32(order.Uint32(buf)))
	},
}
