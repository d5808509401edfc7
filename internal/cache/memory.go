package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryStore created with a non-positive limit.
const DefaultMaxEntries = 5000

// cullFraction is the share of entries evicted when the store is full and
// nothing has expired.
const cullFraction = 3

// MemoryStore is a process-local Store. When it reaches its entry limit it
// first drops expired entries, then the third of entries closest to expiry.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore returns an empty MemoryStore holding at most maxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.cull()
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error { return nil }

// cull must be called with mu held.
func (m *MemoryStore) cull() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.ExpiresAt) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ei, ej := m.entries[keys[i]].ExpiresAt, m.entries[keys[j]].ExpiresAt
		if ei.Equal(ej) {
			return keys[i] < keys[j]
		}
		return ei.Before(ej)
	})

	n := len(keys) / cullFraction
	if n == 0 {
		n = 1
	}
	for _, k := range keys[:n] {
		delete(m.entries, k)
	}
}
