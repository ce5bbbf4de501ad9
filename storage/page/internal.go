package page

import "github.com/nihilopp/petro/storage/disk"

const internalSlotsOffset = HeaderSize

// InternalPage views a frame's bytes as a B+ tree internal node: the common
// header followed by a contiguous run of (key, child PageID) slots. Entry
// 0's key is a dummy (logically -infinity, per invariant T2) and is never
// read by FindChildIndex; MoveAllTo overwrites it with the pulled-down
// separator before moving the entry into the recipient.
type InternalPage[K any] struct {
	CommonHeader
	KeyCodec Codec[K]
}

// NewInternalPage views data as an internal page using keyCodec.
func NewInternalPage[K any](data []byte, keyCodec Codec[K]) *InternalPage[K] {
	return &InternalPage[K]{CommonHeader: CommonHeader{Data: data}, KeyCodec: keyCodec}
}

// Init sets up an empty internal page's header fields.
func (p *InternalPage[K]) Init(pageID, parentID disk.PageID, maxSize int32) {
	p.SetPageType(Internal)
	p.SetPageID(pageID)
	p.SetParentPageID(parentID)
	p.SetMaxSize(maxSize)
	p.SetSize(0)
}

func (p *InternalPage[K]) slotWidth() int {
	return p.KeyCodec.Width + PageIDCodec.Width
}

func (p *InternalPage[K]) slotOffset(i int) int {
	return internalSlotsOffset + i*p.slotWidth()
}

func (p *InternalPage[K]) KeyAt(i int) K {
	off := p.slotOffset(i)
	return p.KeyCodec.Decode(p.Data[off : off+p.KeyCodec.Width])
}

func (p *InternalPage[K]) SetKeyAt(i int, key K) {
	off := p.slotOffset(i)
	p.KeyCodec.Encode(key, p.Data[off:off+p.KeyCodec.Width])
}

func (p *InternalPage[K]) ValueAt(i int) disk.PageID {
	off := p.slotOffset(i) + p.KeyCodec.Width
	return PageIDCodec.Decode(p.Data[off : off+PageIDCodec.Width])
}

func (p *InternalPage[K]) SetValueAt(i int, id disk.PageID) {
	off := p.slotOffset(i) + p.KeyCodec.Width
	PageIDCodec.Encode(id, p.Data[off:off+PageIDCodec.Width])
}

func (p *InternalPage[K]) copySlot(dstIdx int, src *InternalPage[K], srcIdx int) {
	p.SetKeyAt(dstIdx, src.KeyAt(srcIdx))
	p.SetValueAt(dstIdx, src.ValueAt(srcIdx))
}

// FindChildIndex returns the index of the child whose subtree key should
// route into, per invariant T2: the last entry i with key_i <= key (entry 0
// always qualifies since its key is the -infinity dummy).
func (p *InternalPage[K]) FindChildIndex(key K, cmp func(K, K) int) int {
	childIdx := 0
	for i := 1; i < int(p.Size()); i++ {
		if cmp(p.KeyAt(i), key) <= 0 {
			childIdx = i
		} else {
			break
		}
	}
	return childIdx
}

// ValueIndex returns the slot index holding child, or -1 if absent.
func (p *InternalPage[K]) ValueIndex(child disk.PageID) int {
	for i := 0; i < int(p.Size()); i++ {
		if p.ValueAt(i) == child {
			return i
		}
	}
	return -1
}

// InsertAt shifts slots [idx, size) right by one and writes key/child at
// idx. Used for idx >= 1; idx 0's key is never meaningful.
func (p *InternalPage[K]) InsertAt(idx int, key K, child disk.PageID) {
	size := int(p.Size())
	for i := size; i > idx; i-- {
		p.copySlot(i, p, i-1)
	}
	p.SetKeyAt(idx, key)
	p.SetValueAt(idx, child)
	p.SetSize(int32(size + 1))
}

// RemoveAt shifts slots (idx, size) left by one, dropping idx.
func (p *InternalPage[K]) RemoveAt(idx int) {
	size := int(p.Size())
	for i := idx; i < size-1; i++ {
		p.copySlot(i, p, i+1)
	}
	p.SetSize(int32(size - 1))
}

// PopulateNewRoot sets p up as a fresh root over exactly two children,
// after the first split of what used to be the only node in the tree.
func (p *InternalPage[K]) PopulateNewRoot(left disk.PageID, key K, right disk.PageID) {
	p.SetValueAt(0, left)
	p.SetKeyAt(1, key)
	p.SetValueAt(1, right)
	p.SetSize(2)
}

// MoveHalfTo splits p: the upper half moves to recipient, whose entry 0
// inherits a dummy key slot like any internal node's.
func (p *InternalPage[K]) MoveHalfTo(recipient *InternalPage[K]) {
	size := int(p.Size())
	keep := (size + 1) / 2

	for i := keep; i < size; i++ {
		recipient.copySlot(i-keep, p, i)
	}
	recipient.SetSize(int32(size - keep))
	p.SetSize(int32(keep))
}

// MoveAllTo appends all of p's entries onto the end of recipient. middleKey
// is the separator pulled down from the parent, installed as the key of
// p's first (dummy-keyed) entry once it lands past recipient's existing
// entries.
func (p *InternalPage[K]) MoveAllTo(recipient *InternalPage[K], middleKey K) {
	base := int(recipient.Size())
	size := int(p.Size())

	p.SetKeyAt(0, middleKey)
	for i := 0; i < size; i++ {
		recipient.copySlot(base+i, p, i)
	}
	recipient.SetSize(int32(base + size))
	p.SetSize(0)
}

// MoveFirstToEndOf borrows p's first child onto the end of recipient.
// middleKey is the separator pulled down from the parent for the borrowed
// entry's new position in recipient; p's new first entry gets a dummy key.
func (p *InternalPage[K]) MoveFirstToEndOf(recipient *InternalPage[K], middleKey K) {
	idx := int(recipient.Size())
	recipient.SetKeyAt(idx, middleKey)
	recipient.SetValueAt(idx, p.ValueAt(0))
	recipient.SetSize(int32(idx + 1))
	p.RemoveAt(0)
}

// MoveLastToFrontOf borrows p's last child onto the front of recipient.
// middleKey becomes recipient's new entry-1 key (the old entry 0 dummy
// shifts to entry 1); p loses its last entry.
func (p *InternalPage[K]) MoveLastToFrontOf(recipient *InternalPage[K], middleKey K) {
	last := int(p.Size()) - 1
	child := p.ValueAt(last)
	p.SetSize(int32(last))

	size := int(recipient.Size())
	for i := size; i > 0; i-- {
		recipient.copySlot(i, recipient, i-1)
	}
	recipient.SetValueAt(0, child)
	recipient.SetKeyAt(1, middleKey)
	recipient.SetSize(int32(size + 1))
}
