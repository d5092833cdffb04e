package state

import (
	"context"
	"slices"
	"sync"
)

// Store keeps one ordered list of text lines, oldest first.
// Implementations must make Append and Save all-or-nothing.
type Store interface {
	// Load returns every stored line. A store that was never written
	// yields an empty list and no error.
	Load(ctx context.Context) ([]string, error)
	// Append adds lines to the end of the list in a single operation.
	Append(ctx context.Context, lines []string) error
	// Save replaces the whole list.
	Save(ctx context.Context, lines []string) error
}

// Backend hands out named stores that share one storage medium.
type Backend interface {
	Store(name string) Store
	Close() error
}

type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string][]string),
	}
}

func (b *MemoryBackend) Store(name string) Store {
	return &memoryStore{backend: b, name: name}
}

func (b *MemoryBackend) Close() error { return nil }

type memoryStore struct {
	backend *MemoryBackend
	name    string
}

func (s *memoryStore) Load(ctx context.Context) ([]string, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	return slices.Clone(s.backend.data[s.name]), nil
}

func (s *memoryStore) Append(ctx context.Context, lines []string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.data[s.name] = append(s.backend.data[s.name], lines...)
	return nil
}

func (s *memoryStore) Save(ctx context.Context, lines []string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.data[s.name] = slices.Clone(lines)
	return nil
}
