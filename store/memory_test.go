package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestMemory(t *testing.T) (*Memory, *time.Time) {
	t.Helper()

	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }
	t.Cleanup(m.Close)

	return m, &now
}

func TestMemoryGetSetDelete(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("expected %q, got %q", "v", got)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryLazyExpiry(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	*now = now.Add(2 * time.Minute)

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestMemoryIncrFixedWindow(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := m.Incr(ctx, "cnt", time.Minute)
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	// Later increments do not extend the window.
	*now = now.Add(30 * time.Second)
	if _, err := m.Incr(ctx, "cnt", time.Minute); err != nil {
		t.Fatalf("incr failed: %v", err)
	}
	*now = now.Add(31 * time.Second)

	got, err := m.Incr(ctx, "cnt", time.Minute)
	if err != nil {
		t.Fatalf("incr failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected fresh window count 1, got %d", got)
	}
}

func TestMemoryIncrConcurrent(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx := context.Background()
	const workers = 64

	var wg sync.WaitGroup
	seen := make(chan int64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.Incr(ctx, "cnt", time.Minute)
			if err != nil {
				t.Errorf("incr failed: %v", err)
				return
			}
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	// Every increment must observe a distinct pre-increment value.
	unique := make(map[int64]bool, workers)
	for n := range seen {
		if unique[n] {
			t.Fatalf("duplicate counter value %d", n)
		}
		unique[n] = true
	}
	if len(unique) != workers {
		t.Fatalf("expected %d distinct values, got %d", workers, len(unique))
	}
}

func TestMemorySweep(t *testing.T) {
	m, now := newTestMemory(t)
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	*now = now.Add(2 * time.Minute)
	m.sweep()

	m.mu.Lock()
	_, ok := m.entries["k"]
	m.mu.Unlock()
	if ok {
		t.Fatal("expected sweep to drop expired entry")
	}
}
