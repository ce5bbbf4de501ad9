package page

import "github.com/nihilopp/petro/storage/disk"

const offNextPageID = HeaderSize
const leafSlotsOffset = HeaderSize + 4

// LeafPage views a frame's bytes as a B+ tree leaf: the common header, a
// next_page_id forming the leaf chain, and a contiguous run of (key, value)
// slots. Slot width is fixed per tree instance (KeyCodec.Width +
// ValCodec.Width), so every slot lives at an arithmetic offset from
// leafSlotsOffset — there is no search beyond the slot index itself.
type LeafPage[K, V any] struct {
	CommonHeader
	KeyCodec Codec[K]
	ValCodec Codec[V]
}

// NewLeafPage views data (a frame's backing buffer) as a leaf page using
// the given key/value codecs.
func NewLeafPage[K, V any](data []byte, keyCodec Codec[K], valCodec Codec[V]) *LeafPage[K, V] {
	return &LeafPage[K, V]{CommonHeader: CommonHeader{Data: data}, KeyCodec: keyCodec, ValCodec: valCodec}
}

// Init sets up an empty leaf page's header fields.
func (p *LeafPage[K, V]) Init(pageID, parentID disk.PageID, maxSize int32) {
	p.SetPageType(Leaf)
	p.SetPageID(pageID)
	p.SetParentPageID(parentID)
	p.SetMaxSize(maxSize)
	p.SetSize(0)
	p.SetNextPageID(disk.InvalidPageID)
}

func (p *LeafPage[K, V]) NextPageID() disk.PageID {
	return disk.PageID(int32(order.Uint32(p.Data[offNextPageID:])))
}

func (p *LeafPage[K, V]) SetNextPageID(id disk.PageID) {
	order.PutUint32(p.Data[offNextPageID:], uint32(int32(id)))
}

func (p *LeafPage[K, V]) slotWidth() int {
	return p.KeyCodec.Width + p.ValCodec.Width
}

func (p *LeafPage[K, V]) slotOffset(i int) int {
	return leafSlotsOffset + i*p.slotWidth()
}

func (p *LeafPage[K, V]) KeyAt(i int) K {
	off := p.slotOffset(i)
	return p.KeyCodec.Decode(p.Data[off : off+p.KeyCodec.Width])
}

func (p *LeafPage[K, V]) SetKeyAt(i int, key K) {
	off := p.slotOffset(i)
	p.KeyCodec.Encode(key, p.Data[off:off+p.KeyCodec.Width])
}

func (p *LeafPage[K, V]) ValueAt(i int) V {
	off := p.slotOffset(i) + p.KeyCodec.Width
	return p.ValCodec.Decode(p.Data[off : off+p.ValCodec.Width])
}

func (p *LeafPage[K, V]) SetValueAt(i int, val V) {
	off := p.slotOffset(i) + p.KeyCodec.Width
	p.ValCodec.Encode(val, p.Data[off:off+p.ValCodec.Width])
}

func (p *LeafPage[K, V]) copySlot(dstIdx int, src *LeafPage[K, V], srcIdx int) {
	p.SetKeyAt(dstIdx, src.KeyAt(srcIdx))
	p.SetValueAt(dstIdx, src.ValueAt(srcIdx))
}

// FindIndex binary searches for key under cmp, returning the slot index it
// occupies (found=true) or the index a new entry with that key should be
// inserted at (found=false).
func (p *LeafPage[K, V]) FindIndex(key K, cmp func(K, K) int) (idx int, found bool) {
	lo, hi := 0, int(p.Size())
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := cmp(p.KeyAt(mid), key); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			return mid, true
		}
	}
	return lo, false
}

// InsertAt shifts slots [idx, size) right by one and writes key/val at idx.
func (p *LeafPage[K, V]) InsertAt(idx int, key K, val V) {
	size := int(p.Size())
	for i := size; i > idx; i-- {
		p.copySlot(i, p, i-1)
	}
	p.SetKeyAt(idx, key)
	p.SetValueAt(idx, val)
	p.SetSize(int32(size + 1))
}

// RemoveAt shifts slots (idx, size) left by one, dropping idx.
func (p *LeafPage[K, V]) RemoveAt(idx int) {
	size := int(p.Size())
	for i := idx; i < size-1; i++ {
		p.copySlot(i, p, i+1)
	}
	p.SetSize(int32(size - 1))
}

// MoveHalfTo splits p: the upper half (ceil(size/2) remain, the rest move)
// moves to recipient, which inherits p's next_page_id; p's next_page_id
// becomes recipient.
func (p *LeafPage[K, V]) MoveHalfTo(recipient *LeafPage[K, V]) {
	size := int(p.Size())
	keep := (size + 1) / 2

	for i := keep; i < size; i++ {
		recipient.copySlot(i-keep, p, i)
	}
	recipient.SetSize(int32(size - keep))
	p.SetSize(int32(keep))

	recipient.SetNextPageID(p.NextPageID())
	p.SetNextPageID(recipient.PageID())
}

// MoveAllTo appends all of p's entries onto the end of recipient (leaf
// coalesce) and splices recipient's next_page_id to p's, since p is being
// removed from the chain.
func (p *LeafPage[K, V]) MoveAllTo(recipient *LeafPage[K, V]) {
	base := int(recipient.Size())
	size := int(p.Size())
	for i := 0; i < size; i++ {
		recipient.copySlot(base+i, p, i)
	}
	recipient.SetSize(int32(base + size))
	recipient.SetNextPageID(p.NextPageID())
	p.SetSize(0)
}

// MoveFirstToEndOf borrows p's first entry onto the end of recipient
// (redistribute from the right sibling).
func (p *LeafPage[K, V]) MoveFirstToEndOf(recipient *LeafPage[K, V]) {
	idx := int(recipient.Size())
	recipient.copySlot(idx, p, 0)
	recipient.SetSize(int32(idx + 1))
	p.RemoveAt(0)
}

// MoveLastToFrontOf borrows p's last entry onto the front of recipient
// (redistribute from the left sibling).
func (p *LeafPage[K, V]) MoveLastToFrontOf(recipient *LeafPage[K, V]) {
	last := int(p.Size()) - 1
	recipient.InsertAt(0, p.KeyAt(last), p.ValueAt(last))
	p.SetSize(int32(last))
}
