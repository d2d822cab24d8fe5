package repository

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryKV is a process-local KV. Entries never expire; batches are serialized by mu.
type MemoryKV struct {
	mu sync.Mutex
	c  *cache.Cache
}

// NewMemoryKV returns an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryKV) Write(ctx context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range b.Set {
		m.c.Set(k, v, cache.NoExpiration)
	}
	for _, k := range b.Delete {
		m.c.Delete(k)
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.ItemCount()
}

func (m *MemoryKV) Close() error { return nil }
