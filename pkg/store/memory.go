// ABOUTME: In-memory byte store
// ABOUTME: Map-backed Store implementation safe for concurrent use
package store

import "sync"

// Memory is an in-memory Store
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
	}
}

// Write stores a copy of data under name, replacing any previous blob
func (m *Memory) Write(name string, data []byte) error {
	if name == "" {
		return &IOError{Op: "write", Name: name, Err: errEmptyName}
	}

	blob := make([]byte, len(data))
	copy(blob, data)

	m.mu.Lock()
	m.blobs[name] = blob
	m.mu.Unlock()
	return nil
}

// Read returns a copy of the blob stored under name
func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.RLock()
	blob, ok := m.blobs[name]
	m.mu.RUnlock()

	if !ok {
		return nil, &IOError{Op: "read", Name: name, Err: ErrNotFound}
	}

	data := make([]byte, len(blob))
	copy(data, blob)
	return data, nil
}

// Size returns the length of the blob stored under name
func (m *Memory) Size(name string) (int64, error) {
	m.mu.RLock()
	blob, ok := m.blobs[name]
	m.mu.RUnlock()

	if !ok {
		return 0, &IOError{Op: "size", Name: name, Err: ErrNotFound}
	}
	return int64(len(blob)), nil
}

// Delete removes the blob stored under name
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[name]; !ok {
		return &IOError{Op: "delete", Name: name, Err: ErrNotFound}
	}
	delete(m.blobs, name)
	return nil
}

// Names returns the names of all stored blobs in no particular order
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	return names
}

// Len returns the number of stored blobs
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
