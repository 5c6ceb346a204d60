package goAdmit

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func attemptKey(ip, accountKey string) string {
	return "la:" + ip + ":" + accountKey + ":" + uuid.NewString()
}

// RecordAttempt records one authentication outcome after the guarded
// operation completed: it persists the LoginAttempt fact, emits the
// LOGIN_SUCCESS or LOGIN_FAILED event, and on failure advances the lockout
// state machine (which may escalate into an IP block).
//
// A successful attempt deliberately leaves the failure counter to expire on
// its own rather than clearing it — a documented leniency, not an oversight.
// Persisting the attempt fact is best-effort: failures are logged, never
// returned, so observability cannot break the authentication path.
func (e *Engine) RecordAttempt(ctx context.Context, ip, accountKey string, success bool, userAgent string) error {
	if e == nil {
		return ErrStoreUnavailable
	}
	if accountKey == "" || ip == "" || net.ParseIP(ip) == nil {
		return ErrInvalidIdentifier
	}

	client := NewClientIdentifier(ip, userAgent)
	now := time.Now().UTC()

	e.persistAttempt(ctx, LoginAttempt{
		IP:            ip,
		AccountKey:    accountKey,
		Timestamp:     now,
		Success:       success,
		UserAgentHash: client.UserAgentHash,
	})

	eventType := EventLoginFailed
	metric := MetricLoginFailure
	if success {
		eventType = EventLoginSuccess
		metric = MetricLoginSuccess
	}
	e.metricInc(metric)
	e.emitEvent(ctx, SecurityEvent{
		Timestamp:  now,
		Type:       eventType,
		IP:         ip,
		AccountKey: accountKey,
		Detail:     map[string]string{"user_agent_hash": client.UserAgentHash},
	})

	if success {
		return nil
	}

	locked, err := e.lockout.RecordFailure(ctx, accountKey, ip)
	if err != nil {
		e.metricInc(MetricStoreError)
		return e.wrapStoreErr(err)
	}
	if locked {
		e.metricInc(MetricLockoutIssued)
		e.logger.Warn("account locked",
			zap.String("account_key", accountKey),
			zap.String("ip", ip),
			zap.Duration("duration", e.config.Security.LockoutDuration))
	}
	return nil
}

// RecordTokenRefresh records a token refresh performed by the issuance
// collaborator at the boundary.
func (e *Engine) RecordTokenRefresh(ctx context.Context, ip, accountKey string) {
	if e == nil {
		return
	}
	e.metricInc(MetricTokenRefresh)
	e.emitEvent(ctx, SecurityEvent{
		Type:       EventTokenRefresh,
		IP:         ip,
		AccountKey: accountKey,
	})
}

func (e *Engine) persistAttempt(ctx context.Context, attempt LoginAttempt) {
	if !e.config.Audit.Enabled {
		return
	}

	data, err := json.Marshal(attempt)
	if err != nil {
		e.logger.Warn("login attempt encode failed", zap.Error(err))
		return
	}

	key := attemptKey(attempt.IP, attempt.AccountKey)
	if err := e.store.Set(ctx, key, data, e.config.Audit.AttemptTTL); err != nil {
		e.metricInc(MetricStoreError)
		e.logger.Warn("login attempt write failed",
			zap.String("account_key", attempt.AccountKey),
			zap.Error(err))
	}
}
