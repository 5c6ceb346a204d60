package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps any backend failure. Callers decide the policy:
	// admission checks fail closed, rate limiting may fail open.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is the minimal keyed-TTL contract every goAdmit component builds on.
//
// Set and Delete are last-write-wins. Incr is an atomic increment that
// applies ttl only when the increment creates the key, giving fixed-window
// semantics: the window starts at the first hit and resets completely when
// the TTL elapses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
