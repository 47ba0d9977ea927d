package cache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrClosed is returned by Ping after Close
var ErrClosed = errors.New("cache closed")

// MemoryCache is a process-local CacheBackend with a bounded entry count.
type MemoryCache struct {
	data       sync.Map // string -> *item
	capacity   int
	sweepEvery time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache. Each sweep drops expired entries
// and then trims to capacity, evicting the entries closest to expiry.
func NewMemoryCache(capacity int, sweepEvery time.Duration) *MemoryCache {
	m := &MemoryCache{
		capacity:   capacity,
		sweepEvery: sweepEvery,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// load returns a live entry, deleting it if expired
func (m *MemoryCache) load(key string, now time.Time) ([]byte, bool) {
	v, ok := m.data.Load(key)
	if !ok {
		return nil, false
	}
	entry := v.(*item)
	if !now.Before(entry.expiresAt) {
		m.data.CompareAndDelete(key, entry)
		return nil, false
	}
	return entry.value, true
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := m.load(key, m.now())
	return value, ok, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data.Store(key, &item{
		value:     value,
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryCache) GetMultiple(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	now := m.now()
	for _, key := range keys {
		if value, ok := m.load(key, now); ok {
			result[key] = value
		}
	}
	return result, nil
}

// Ping fails only once the cache is closed
func (m *MemoryCache) Ping(ctx context.Context) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
		return nil
	}
}

func (m *MemoryCache) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

// Len returns the number of stored entries, expired ones included until they are touched or swept
func (m *MemoryCache) Len() int {
	n := 0
	m.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (m *MemoryCache) sweepLoop() {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

type liveKey struct {
	key       string
	expiresAt time.Time
}

func (m *MemoryCache) sweep() {
	now := m.now()
	var live []liveKey
	m.data.Range(func(key, value any) bool {
		entry := value.(*item)
		if !now.Before(entry.expiresAt) {
			m.data.CompareAndDelete(key, entry)
			return true
		}
		live = append(live, liveKey{key: key.(string), expiresAt: entry.expiresAt})
		return true
	})

	if len(live) <= m.capacity {
		return
	}
	slices.SortFunc(live, func(a, b liveKey) int {
		return a.expiresAt.Compare(b.expiresAt)
	})
	for _, e := range live[:len(live)-m.capacity] {
		m.data.Delete(e.key)
	}
}
