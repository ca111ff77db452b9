// ===== internal/capture/buffer.go =====
package capture

import (
	"container/list"
	"sync"

	"dhcpwatch/pkg/models"
)

// DefaultBufferLimit is the number of records kept when no limit is configured
const DefaultBufferLimit = 1000

// Buffer is the engine-side record log. The oldest record is dropped once
// the limit is reached.
type Buffer struct {
	records *list.List
	limit   int
	mu      sync.RWMutex
}

// NewBuffer creates a buffer holding at most limit records
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &Buffer{
		records: list.New(),
		limit:   limit,
	}
}

// Add appends a record
func (b *Buffer) Add(record models.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.records.Len() >= b.limit {
		b.records.Remove(b.records.Front())
	}

	b.records.PushBack(record)
}

// Snapshot returns all records in capture order
func (b *Buffer) Snapshot() []models.LogRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	records := make([]models.LogRecord, 0, b.records.Len())
	for e := b.records.Front(); e != nil; e = e.Next() {
		records = append(records, e.Value.(models.LogRecord))
	}

	return records
}

// Clear drops every record
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.records.Init()
	b.mu.Unlock()
}

// Len returns the number of buffered records
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.records.Len()
}
