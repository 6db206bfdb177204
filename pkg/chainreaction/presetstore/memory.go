package presetstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory preset store.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]storedPreset
	nextSeq int
	closed  bool
}

// storedPreset holds preset data with metadata for List().
type storedPreset struct {
	data      []byte
	sequence  int
	updatedAt time.Time
}

// NewMemoryStore creates a new in-memory preset store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedPreset),
	}
}

// Save implements Store.
// Overwriting a key keeps its original sequence.
func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	seq := 0
	if existing, ok := m.data[key]; ok {
		seq = existing.sequence
	} else {
		m.nextSeq++
		seq = m.nextSeq
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[key] = storedPreset{
		data:      stored,
		sequence:  seq,
		updatedAt: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	p, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(p.data))
	copy(result, p.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for key, p := range m.data {
		infos = append(infos, Info{
			Key:       key,
			Sequence:  p.sequence,
			UpdatedAt: p.updatedAt,
			Size:      int64(len(p.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored presets.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
