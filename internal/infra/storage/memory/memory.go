package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// MemoryStorage is an in-process ordered key-value store.
// Scans iterate over a snapshot of the matching entries, so writers never
// block on a slow reader.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Store = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStorage) Put(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = bytes.Clone(value)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *MemoryStorage) Iterate(ctx context.Context, prefix []byte, fn storage.IterateFunc) error {
	type entry struct {
		key   string
		value []byte
	}

	s.mu.RLock()
	entries := make([]entry, 0, len(s.data))
	for k, v := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			entries = append(entries, entry{key: k, value: v})
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn([]byte(e.key), e.value); err != nil {
			if errors.Is(err, storage.ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot returns a copy of every key/value pair.
func (s *MemoryStorage) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = bytes.Clone(v)
	}
	return out
}

func (s *MemoryStorage) Close() error { return nil }
