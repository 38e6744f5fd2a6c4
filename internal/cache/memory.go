package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory is an in-process LRU cache with per-entry TTL. It is the
// default backend when no Redis URL is configured.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      *list.List
	capacity   int
	defaultTTL time.Duration
}

type memoryEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
	element   *list.Element
}

// NewMemory creates a new in-memory cache.
func NewMemory(capacity int, defaultTTL time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}

	return &Memory{
		entries:    make(map[string]*memoryEntry),
		order:      list.New(),
		capacity:   capacity,
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached payload for a key, or false when absent or
// expired.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(e.expiresAt) {
		m.removeEntry(e)
		return nil, false, nil
	}

	m.order.MoveToFront(e.element)
	return e.payload, true, nil
}

// Set stores a payload under a key for the given TTL. When full, the
// least recently used entry is evicted.
func (m *Memory) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.payload = payload
		e.expiresAt = time.Now().Add(ttl)
		m.order.MoveToFront(e.element)
		return nil
	}

	for len(m.entries) >= m.capacity {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.removeEntry(oldest.Value.(*memoryEntry))
	}

	e := &memoryEntry{
		key:       key,
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	e.element = m.order.PushFront(e)
	m.entries[key] = e
	return nil
}

// Delete removes a key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		m.removeEntry(e)
	}
	return nil
}

// Close releases cache resources.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	m.order.Init()
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// removeEntry must be called with the lock held.
func (m *Memory) removeEntry(e *memoryEntry) {
	m.order.Remove(e.element)
	delete(m.entries, e.key)
}

// Verify interface compliance.
var _ ResultCache = (*Memory)(nil)
