package goAdmit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jcyrus/goAdmit/internal/access"
	"github.com/jcyrus/goAdmit/internal/lockout"
	"github.com/jcyrus/goAdmit/internal/rate"
	"github.com/jcyrus/goAdmit/store"
)

// Engine is the admission-control facade. It composes the IP evaluator, the
// rate limiter, the lockout engine, and the audit dispatcher over one keyed
// store. Construct it through [Builder.Build]; all methods are safe for
// concurrent use afterwards.
type Engine struct {
	config  Config
	store   store.Store
	access  *access.Evaluator
	limiter *rate.Limiter
	lockout *lockout.Engine
	audit   *auditDispatcher
	metrics *Metrics
	logger  *zap.Logger
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded under
// DropIfFull buffer pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// IsIPAllowed reports whether ip passes allow/deny evaluation. A store
// outage fails closed: the IP is reported as not allowed alongside a
// wrapped [ErrStoreUnavailable].
func (e *Engine) IsIPAllowed(ctx context.Context, ip string) (bool, error) {
	if e == nil {
		return false, ErrStoreUnavailable
	}

	ok, err := e.access.IsAllowed(ctx, ip)
	if err != nil {
		e.metricInc(MetricStoreError)
		return false, e.wrapStoreErr(err)
	}
	return ok, nil
}

// BlockIP appends ip to the dynamic deny-list for the configured TTL and
// emits an IP_BLOCKED event. Also invoked by the lockout engine when
// cross-account escalation trips.
func (e *Engine) BlockIP(ctx context.Context, ip, reason string) error {
	if e == nil {
		return ErrStoreUnavailable
	}

	if err := e.access.Block(ctx, ip, reason); err != nil {
		e.metricInc(MetricStoreError)
		return e.wrapStoreErr(err)
	}

	e.metricInc(MetricIPBlocked)
	e.logger.Warn("ip blocked",
		zap.String("ip", ip),
		zap.String("reason", reason))
	e.emitEvent(ctx, SecurityEvent{
		Type:   EventIPBlocked,
		IP:     ip,
		Detail: map[string]string{"reason": reason},
	})
	return nil
}

// IsLockedOut reports whether accountKey has an active lockout. Stale
// records are deleted lazily here. A store outage fails closed: the account
// is reported as locked alongside a wrapped [ErrStoreUnavailable].
func (e *Engine) IsLockedOut(ctx context.Context, accountKey string) (bool, error) {
	if e == nil {
		return true, ErrStoreUnavailable
	}
	if accountKey == "" {
		return false, ErrInvalidIdentifier
	}

	locked, err := e.lockout.IsLocked(ctx, accountKey)
	if err != nil {
		e.metricInc(MetricStoreError)
		return true, e.wrapStoreErr(err)
	}
	return locked, nil
}

// BlockedIP returns the active dynamic block record for ip, or nil when no
// dynamic block exists. Static deny-list entries carry no record.
func (e *Engine) BlockedIP(ctx context.Context, ip string) (*BlockedIPInfo, error) {
	if e == nil {
		return nil, ErrStoreUnavailable
	}

	record, err := e.access.Blocked(ctx, ip)
	if err != nil {
		e.metricInc(MetricStoreError)
		return nil, e.wrapStoreErr(err)
	}
	if record == nil {
		return nil, nil
	}
	return &BlockedIPInfo{
		Reason:    record.Reason,
		BlockedAt: record.BlockedAt,
	}, nil
}

// FailureCount returns the windowed failed-attempt count for accountKey.
// Zero means no live failures; the count resets when its window expires.
func (e *Engine) FailureCount(ctx context.Context, accountKey string) (int64, error) {
	if e == nil {
		return 0, ErrStoreUnavailable
	}

	count, err := e.lockout.FailureCount(ctx, accountKey)
	if err != nil {
		e.metricInc(MetricStoreError)
		return 0, e.wrapStoreErr(err)
	}
	return count, nil
}

// ThrottleUsage returns how many admissions the client has consumed in the
// active window for purpose. Zero means an untouched or expired window.
func (e *Engine) ThrottleUsage(ctx context.Context, purpose, ip, userAgent string) (int64, error) {
	if e == nil {
		return 0, ErrStoreUnavailable
	}

	client := NewClientIdentifier(ip, userAgent)
	count, err := e.limiter.Count(ctx, purpose, client.IP, client.UserAgentHash)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			e.metricInc(MetricStoreError)
		}
		return 0, e.wrapStoreErr(err)
	}
	return count, nil
}

// LockoutStatus returns the active lockout deadline and attempt count for
// accountKey, or (zero, 0) when unlocked.
func (e *Engine) LockoutStatus(ctx context.Context, accountKey string) (time.Time, int, error) {
	if e == nil {
		return time.Time{}, 0, ErrStoreUnavailable
	}

	record, err := e.lockout.Status(ctx, accountKey)
	if err != nil {
		e.metricInc(MetricStoreError)
		return time.Time{}, 0, e.wrapStoreErr(err)
	}
	if record == nil {
		return time.Time{}, 0, nil
	}
	return record.LockedUntil, int(record.Attempts), nil
}

func (e *Engine) wrapStoreErr(err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func (e *Engine) emitEvent(ctx context.Context, event SecurityEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

var _ lockout.Blocker = (*Engine)(nil)
