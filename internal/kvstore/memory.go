package kvstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/desertthunder/ytune/internal/shared"
)

// MemoryBackend keeps every namespace in process memory. Nothing survives Close.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) Bucket(name string) Store {
	return &memoryStore{backend: m, name: name}
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.buckets)
	return nil
}

type memoryStore struct {
	backend *MemoryBackend
	name    string
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	v, ok := s.backend.buckets[s.name][key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *memoryStore) Put(_ context.Context, key string, value []byte) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	b, ok := s.backend.buckets[s.name]
	if !ok {
		b = make(map[string][]byte)
		s.backend.buckets[s.name] = b
	}
	b[key] = slices.Clone(value)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	delete(s.backend.buckets[s.name], key)
	return nil
}

func (s *memoryStore) Keys(_ context.Context) ([]string, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.backend.buckets[s.name])), nil
}

func (s *memoryStore) Purge(_ context.Context) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	delete(s.backend.buckets, s.name)
	return nil
}
