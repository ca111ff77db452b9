// ===== internal/logs/store.go =====
package logs

import (
	"sync"

	"dhcpwatch/pkg/models"
)

// Store holds the current snapshot of captured log records
type Store struct {
	records  []models.LogRecord
	capacity int
	mu       sync.RWMutex
}

// NewStore creates a store. A positive capacity keeps only the newest
// records of each replace.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		records:  make([]models.LogRecord, 0),
		capacity: capacity,
	}
}

// Replace swaps the store contents for records
func (s *Store) Replace(records []models.LogRecord) {
	if s.capacity > 0 && len(records) > s.capacity {
		records = records[len(records)-s.capacity:]
	}

	next := make([]models.LogRecord, len(records))
	copy(next, records)

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
}

// Clear empties the store
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make([]models.LogRecord, 0)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current records in capture order
func (s *Store) Snapshot() []models.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.LogRecord, len(s.records))
	copy(records, s.records)
	return records
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given id
func (s *Store) Get(id string) (models.LogRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if record.ID == id {
			return record, true
		}
	}
	return models.LogRecord{}, false
}

// Capacity returns the configured capacity, zero meaning unbounded
func (s *Store) Capacity() int {
	return s.capacity
}
