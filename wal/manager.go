// Package wal is the write-ahead log collaborator the buffer pool holds a
// reference to. Per the storage core's scope, WAL integration is not
// required: AppendRecord and Flush are no-ops a caller can wire a real log
// behind later without changing BufferPoolManager's constructor signature.
package wal

// Manager is a minimal stand-in for a write-ahead log manager.
type Manager struct {
	lsn int64
}

// NewManager returns a Manager starting at LSN 0.
func NewManager() *Manager {
	return &Manager{}
}

// AppendRecord assigns the next LSN and returns it. data is not stored.
func (m *Manager) AppendRecord(data []byte) int64 {
	m.lsn++
	return m.lsn
}

// Flush is a no-op; nothing is buffered that needs flushing.
func (m *Manager) Flush() error {
	return nil
}
