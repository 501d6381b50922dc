package cache

import (
	"database/sql"
	"sync"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

type memoryEntry struct {
	value     []byte
	version   int
	timestamp int64
}

// MemoryStore is a process-local cache store, used by the MCP server and tests
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ domain.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get returns a copy of the stored value, or sql.ErrNoRows on a miss
func (m *MemoryStore) Get(key string) ([]byte, int, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, 0, 0, sql.ErrNoRows
	}
	return append([]byte(nil), e.value...), e.version, e.timestamp, nil
}

// Set stores a copy of value
func (m *MemoryStore) Set(key string, value []byte, version int, timestamp int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: append([]byte(nil), value...), version: version, timestamp: timestamp}
	return nil
}

// Len returns the number of entries
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }
