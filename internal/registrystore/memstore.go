package registrystore

import (
	"fmt"
	"sync"

	"prism/go-router/internal/identity"
)

// MemStore is an in-memory SlotStore for tests and ephemeral hosts.
type MemStore struct {
	mu    sync.Mutex
	slots map[identity.ID][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[identity.ID][]byte)}
}

func (m *MemStore) Create(key identity.ID, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[key]; ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	m.slots[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) Read(key identity.ID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStore) Write(key identity.ID, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	m.slots[key] = append([]byte(nil), data...)
	return nil
}
