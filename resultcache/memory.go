package resultcache

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const cleanupInterval = 5 * time.Minute

type memoryEntry struct {
	data     []byte
	storedAt time.Time
}

// Memory is an in-process cache with a TTL and a size cap. Expired entries are dropped first, then
// the oldest.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a memory cache and starts its periodic cleanup. Close stops it.
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		maxSize: max(maxSize, 1),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.periodicCleanup()
	return m
}

func (m *Memory) periodicCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanup must be called with mu held.
func (m *Memory) cleanup() {
	now := m.now()
	for key, e := range m.entries {
		if now.Sub(e.storedAt) > m.ttl {
			delete(m.entries, key)
		}
	}
	if len(m.entries) <= m.maxSize {
		return
	}

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return m.entries[a].storedAt.Compare(m.entries[b].storedAt)
	})
	for _, key := range keys[:len(keys)-m.maxSize] {
		delete(m.entries, key)
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().Sub(e.storedAt) > m.ttl {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return slices.Clone(e.data), true
}

func (m *Memory) Set(_ context.Context, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{data: slices.Clone(data), storedAt: m.now()}
	if len(m.entries) > m.maxSize {
		m.cleanup()
	}
}

func (m *Memory) Stats() Stats {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return Stats{Backend: "memory", Entries: n, Hits: m.hits.Load(), Misses: m.misses.Load()}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}
