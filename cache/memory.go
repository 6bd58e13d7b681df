package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/yhilem/distill/extract"
)

// Memory is an in-process cache. Entries live until Clear; results are
// shared by pointer, so callers must not mutate them.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*extract.Result
	flight  singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*extract.Result)}
}

func (m *Memory) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (*extract.Result, error) {
	m.mu.RLock()
	result, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		m.hits.Add(1)
		return result, nil
	}

	v, err, _ := m.flight.Do(key, func() (any, error) {
		// The leader may have stored the entry between our read miss and
		// joining the flight.
		m.mu.RLock()
		result, ok := m.entries[key]
		m.mu.RUnlock()
		if ok {
			m.hits.Add(1)
			return result, nil
		}

		m.misses.Add(1)
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.entries[key] = result
		m.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*extract.Result), nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var size int64
	for _, r := range m.entries {
		size += int64(len(r.Content))
	}
	return Stats{
		Entries:   len(m.entries),
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		SizeBytes: size,
	}, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]*extract.Result)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
