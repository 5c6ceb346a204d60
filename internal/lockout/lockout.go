package lockout

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/jcyrus/goAdmit/store"
)

// EscalationReason is the block reason attached when a single origin trips
// lockouts across too many accounts.
const EscalationReason = "too many failed login attempts across accounts"

// Config tunes the lockout state machine.
type Config struct {
	MaxAttempts         int
	Duration            time.Duration // failure window and lockout length
	EscalationWindow    time.Duration
	EscalationThreshold int
}

// Blocker receives the origin IP once cross-account failures pass the
// escalation threshold. Implemented by the engine so blocking is audited.
type Blocker interface {
	BlockIP(ctx context.Context, ip, reason string) error
}

// Record is the decoded lockout entry for an account. Its absence means the
// account is not locked.
type Record struct {
	LockedUntil time.Time
	Attempts    uint16
}

// Engine drives the per-account lockout state machine.
type Engine struct {
	store   store.Store
	config  Config
	blocker Blocker
}

// New creates a lockout Engine. blocker may be nil to disable escalation.
func New(st store.Store, cfg Config, blocker Blocker) *Engine {
	return &Engine{store: st, config: cfg, blocker: blocker}
}

func failureKey(accountKey string) string {
	return "fla:" + accountKey
}

func lockKey(accountKey string) string {
	return "alo:" + accountKey
}

func escalationKey(ip string) string {
	return "ipa:" + ip
}

// RecordFailure counts one failed attempt against accountKey. When the
// windowed count reaches the threshold the account transitions to Locked and
// the per-IP escalation counter is bumped; past the escalation threshold the
// origin IP is blocked. Returns whether the account is now locked.
//
// The failure window is fixed from the first failure; later failures do not
// extend it.
func (e *Engine) RecordFailure(ctx context.Context, accountKey, ip string) (bool, error) {
	count, err := e.store.Incr(ctx, failureKey(accountKey), e.config.Duration)
	if err != nil {
		return false, fmt.Errorf("failure counter: %w", err)
	}

	if count < int64(e.config.MaxAttempts) {
		return false, nil
	}

	record := Record{
		LockedUntil: time.Now().Add(e.config.Duration),
		Attempts:    clampAttempts(count),
	}
	if err := e.store.Set(ctx, lockKey(accountKey), encodeRecord(record), e.config.Duration); err != nil {
		return false, fmt.Errorf("write lockout: %w", err)
	}

	if err := e.escalate(ctx, ip); err != nil {
		return true, err
	}
	return true, nil
}

// IsLocked reports whether accountKey is currently locked. A stale record
// whose deadline has passed is deleted on read and reported as unlocked.
func (e *Engine) IsLocked(ctx context.Context, accountKey string) (bool, error) {
	record, err := e.Status(ctx, accountKey)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Status returns the active lockout record for accountKey, or nil when the
// account is unlocked. Expiry is checked lazily here, not by a sweeper.
func (e *Engine) Status(ctx context.Context, accountKey string) (*Record, error) {
	data, err := e.store.Get(ctx, lockKey(accountKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lockout: %w", err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode lockout: %w", err)
	}

	if time.Now().After(record.LockedUntil) {
		if err := e.store.Delete(ctx, lockKey(accountKey)); err != nil {
			return nil, fmt.Errorf("clear stale lockout: %w", err)
		}
		return nil, nil
	}

	return &record, nil
}

// FailureCount returns the current windowed failure count for accountKey.
func (e *Engine) FailureCount(ctx context.Context, accountKey string) (int64, error) {
	data, err := e.store.Get(ctx, failureKey(accountKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var count int64
	for _, c := range data {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: corrupt counter", store.ErrUnavailable)
		}
		count = count*10 + int64(c-'0')
	}
	return count, nil
}

func (e *Engine) escalate(ctx context.Context, ip string) error {
	if e.blocker == nil || ip == "" || e.config.EscalationThreshold <= 0 {
		return nil
	}

	count, err := e.store.Incr(ctx, escalationKey(ip), e.config.EscalationWindow)
	if err != nil {
		return fmt.Errorf("escalation counter: %w", err)
	}

	if count > int64(e.config.EscalationThreshold) {
		if err := e.blocker.BlockIP(ctx, ip, EscalationReason); err != nil {
			return fmt.Errorf("escalation block: %w", err)
		}
	}
	return nil
}

func clampAttempts(count int64) uint16 {
	if count > int64(^uint16(0)) {
		return ^uint16(0)
	}
	return uint16(count)
}

const recordVersionV1 = 1

// encodeRecord packs a Record as version(1) | lockedUntil unix(8) | attempts(2).
func encodeRecord(record Record) []byte {
	buf := make([]byte, 11)
	buf[0] = recordVersionV1
	binary.BigEndian.PutUint64(buf[1:9], uint64(record.LockedUntil.Unix()))
	binary.BigEndian.PutUint16(buf[9:11], record.Attempts)
	return buf
}

func decodeRecord(data []byte) (Record, error) {
	if len(data) != 11 || data[0] != recordVersionV1 {
		return Record{}, errors.New("invalid lockout record")
	}
	return Record{
		LockedUntil: time.Unix(int64(binary.BigEndian.Uint64(data[1:9])), 0),
		Attempts:    binary.BigEndian.Uint16(data[9:11]),
	}, nil
}
