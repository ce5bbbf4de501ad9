package buffer

import (
	"bytes"
	"os"
	"path"
	"testing"

	"github.com/nihilopp/petro/storage/disk"
	"github.com/nihilopp/petro/wal"
	"github.com/stretchr/testify/assert"
)

func TestBufferPoolManager(t *testing.T) {
	t.Run("new page is resident and pinned", func(t *testing.T) {
		bpm := newTestBPM(t, 5)

		pageID, frame, ok := bpm.NewPage()
		assert.True(t, ok)
		assert.NotEqual(t, disk.InvalidPageID, pageID)
		assert.Equal(t, int32(1), frame.PinCount())
	})

	t.Run("fetch after flush returns the bytes written before the flush", func(t *testing.T) {
		bpm := newTestBPM(t, 5)

		pageID, frame, ok := bpm.NewPage()
		assert.True(t, ok)
		copy(frame.Data(), []byte("hello, world!"))
		assert.True(t, bpm.UnpinPage(pageID, true))
		assert.True(t, bpm.FlushPage(pageID))

		frame2, ok := bpm.FetchPage(pageID)
		assert.True(t, ok)
		assert.True(t, bytes.HasPrefix(frame2.Data(), []byte("hello, world!")))
		bpm.UnpinPage(pageID, false)
	})

	t.Run("flush does not change pin count", func(t *testing.T) {
		bpm := newTestBPM(t, 5)

		pageID, frame, ok := bpm.NewPage()
		assert.True(t, ok)
		assert.Equal(t, int32(1), frame.PinCount())
		assert.True(t, bpm.FlushPage(pageID))
		assert.Equal(t, int32(1), frame.PinCount())
	})

	t.Run("unpin on an unknown page fails", func(t *testing.T) {
		bpm := newTestBPM(t, 5)
		assert.False(t, bpm.UnpinPage(disk.PageID(99), false))
	})

	t.Run("flush on an unknown page fails", func(t *testing.T) {
		bpm := newTestBPM(t, 5)
		assert.False(t, bpm.FlushPage(disk.PageID(99)))
	})

	t.Run("delete on a pinned page fails", func(t *testing.T) {
		bpm := newTestBPM(t, 5)
		pageID, _, ok := bpm.NewPage()
		assert.True(t, ok)
		assert.False(t, bpm.DeletePage(pageID))
	})

	t.Run("delete is idempotent on an absent page", func(t *testing.T) {
		bpm := newTestBPM(t, 5)
		assert.True(t, bpm.DeletePage(disk.PageID(99)))
	})

	t.Run("delete frees the frame for reuse", func(t *testing.T) {
		bpm := newTestBPM(t, 1)

		pageID, frame, ok := bpm.NewPage()
		assert.True(t, ok)
		copy(frame.Data(), []byte("keepme"))
		assert.True(t, bpm.UnpinPage(pageID, true))
		assert.True(t, bpm.DeletePage(pageID))

		// frame is free again: a second page can take it.
		pageID2, _, ok := bpm.NewPage()
		assert.True(t, ok)
		assert.NotEqual(t, pageID, pageID2)
	})

	t.Run("pool exhaustion: the nth+1 fetch fails until one page is unpinned", func(t *testing.T) {
		bpm := newTestBPM(t, 4)

		ids := make([]disk.PageID, 4)
		for i := range ids {
			id, _, ok := bpm.NewPage()
			assert.True(t, ok)
			ids[i] = id
		}

		_, _, ok := bpm.NewPage()
		assert.False(t, ok)

		assert.True(t, bpm.UnpinPage(ids[0], false))

		id5, frame5, ok := bpm.NewPage()
		assert.True(t, ok)
		assert.NotEqual(t, disk.InvalidPageID, id5)
		_ = frame5
	})

	t.Run("victim is the first unpinned frame among several candidates", func(t *testing.T) {
		bpm := newTestBPM(t, 2)

		id1, _, ok := bpm.NewPage()
		assert.True(t, ok)
		id2, _, ok := bpm.NewPage()
		assert.True(t, ok)

		assert.True(t, bpm.UnpinPage(id1, false))
		assert.True(t, bpm.UnpinPage(id2, false))

		// id1 was unpinned first, so it's evicted first.
		id3, _, ok := bpm.NewPage()
		assert.True(t, ok)
		assert.NotEqual(t, id3, id1)

		_, resident := bpm.pageTable[id1]
		assert.False(t, resident)
		_, resident = bpm.pageTable[id2]
		assert.True(t, resident)
	})

	t.Run("flush all pages writes every resident page to disk", func(t *testing.T) {
		bpm := newTestBPM(t, 2)

		id1, frame1, ok := bpm.NewPage()
		assert.True(t, ok)
		copy(frame1.Data(), []byte("a"))
		assert.True(t, bpm.UnpinPage(id1, true))

		bpm.FlushAllPages()
		assert.False(t, frame1.IsDirty())
	})
}

func newTestBPM(t *testing.T, poolSize int) *BufferPoolManager {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")
	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	assert.NoError(t, err)

	dm := disk.NewManager(file)
	scheduler := disk.NewScheduler(dm)
	return NewBufferPoolManager(poolSize, scheduler, wal.NewManager())
}
