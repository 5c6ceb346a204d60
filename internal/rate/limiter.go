package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jcyrus/goAdmit/store"
)

var (
	// ErrRateLimited indicates the purpose window is exhausted for the client.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnknownPurpose indicates the purpose has no configured window.
	ErrUnknownPurpose = errors.New("unknown throttle purpose")
)

// Window is one named throttle bucket: a fixed window length and the number
// of admissions it permits.
type Window struct {
	TTL   time.Duration
	Limit int
}

// Limiter enforces per-(purpose, client) fixed-window quotas on top of the
// keyed store's atomic increment.
type Limiter struct {
	store   store.Store
	windows map[string]Window
}

// New creates a Limiter over the given purpose windows.
func New(st store.Store, windows map[string]Window) *Limiter {
	w := make(map[string]Window, len(windows))
	for purpose, window := range windows {
		w[purpose] = window
	}
	return &Limiter{store: st, windows: w}
}

func key(purpose, ip, fingerprint string) string {
	return "thr:" + purpose + ":" + ip + ":" + fingerprint
}

// CheckAndConsume admits or denies one request for the client under purpose.
//
// An exhausted window is checked first and denied without incrementing, so
// steady over-limit traffic cannot grow the counter unboundedly. Otherwise
// the counter is incremented atomically and the post-increment value decides:
// two racing requests at the boundary cannot both land inside the limit,
// because the store hands each a distinct count.
func (l *Limiter) CheckAndConsume(ctx context.Context, purpose, ip, fingerprint string) error {
	window, ok := l.windows[purpose]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}

	k := key(purpose, ip, fingerprint)

	count, err := l.count(ctx, k)
	if err != nil {
		return err
	}
	if count >= int64(window.Limit) {
		return ErrRateLimited
	}

	count, err = l.store.Incr(ctx, k, window.TTL)
	if err != nil {
		return err
	}
	if count > int64(window.Limit) {
		return ErrRateLimited
	}

	return nil
}

// Count returns the current hit count for the client under purpose.
// Missing keys return zero.
func (l *Limiter) Count(ctx context.Context, purpose, ip, fingerprint string) (int64, error) {
	if _, ok := l.windows[purpose]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}
	return l.count(ctx, key(purpose, ip, fingerprint))
}

// Windows returns a copy of the configured purpose windows.
func (l *Limiter) Windows() map[string]Window {
	out := make(map[string]Window, len(l.windows))
	for purpose, window := range l.windows {
		out[purpose] = window
	}
	return out
}

func (l *Limiter) count(ctx context.Context, k string) (int64, error) {
	data, err := l.store.Get(ctx, k)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var count int64
	for _, c := range data {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: corrupt counter at %q", store.ErrUnavailable, k)
		}
		count = count*10 + int64(c-'0')
	}
	return count, nil
}
