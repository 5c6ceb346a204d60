package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const janitorInterval = time.Second

type memoryEntry struct {
	data     []byte
	deadline time.Time // zero = no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// Memory is the in-process [Store] variant. Entries expire lazily on access
// and eagerly through a janitor goroutine, so memory use is bounded by TTLs
// rather than by caller cleanup.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	done    chan struct{}
	once    sync.Once

	now func() time.Time // test hook
}

// NewMemory creates an in-memory store and starts its janitor.
// Call Close to stop the janitor.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go m.janitor()
	return m
}

// Close stops the janitor goroutine. The store remains usable afterwards;
// expiry then happens only lazily on access.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

// Get returns the value at key, or [ErrNotFound] when absent or expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || entry.expired(m.now()) {
		delete(m.entries, key)
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// Set writes value at key with the given TTL, replacing any prior value.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.deadline = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Incr atomically increments the counter at key under the store mutex and
// returns the new value. The TTL is applied only when the increment creates
// the key, matching Redis INCR + conditional EXPIRE.
func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if ok && entry.expired(now) {
		ok = false
	}

	var count int64
	if ok {
		prev, err := strconv.ParseInt(string(entry.data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: non-numeric value at %q", ErrUnavailable, key)
		}
		count = prev + 1
		entry.data = []byte(strconv.FormatInt(count, 10))
		m.entries[key] = entry
		return count, nil
	}

	count = 1
	entry = memoryEntry{data: []byte("1")}
	if ttl > 0 {
		entry.deadline = now.Add(ttl)
	}
	m.entries[key] = entry
	return count, nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.done:
			return
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}
