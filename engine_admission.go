package goAdmit

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/jcyrus/goAdmit/internal/rate"
	"github.com/jcyrus/goAdmit/store"
)

type admissionCheck func(ctx context.Context, req AdmissionRequest) Decision

// Admit runs the ordered admission checks for one inbound request:
// identifier validation, IP allow/deny, account lockout (when AccountKey is
// set), then rate-limit consumption. Evaluation stops at the first denial,
// so already-blocked traffic never consumes rate-limit budget meant for
// legitimate clients sharing an identifier.
//
// Denial is a normal [Decision] value. Decision.Err carries the operational
// fault only when a store outage forced a fail-closed denial.
func (e *Engine) Admit(ctx context.Context, req AdmissionRequest) Decision {
	if e == nil {
		return denyDecision(DenyStoreUnavailable, ErrStoreUnavailable)
	}

	start := time.Now()
	decision := e.runChecks(ctx, req)
	e.observeAdmit(ctx, req, decision, time.Since(start))
	return decision
}

func (e *Engine) runChecks(ctx context.Context, req AdmissionRequest) Decision {
	checks := []admissionCheck{
		e.checkIdentifier,
		e.checkIP,
		e.checkLockout,
		e.checkRate,
	}

	for _, check := range checks {
		if decision := check(ctx, req); !decision.Allowed {
			return decision
		}
	}
	return allowDecision()
}

func (e *Engine) checkIdentifier(_ context.Context, req AdmissionRequest) Decision {
	if req.IP == "" || net.ParseIP(req.IP) == nil {
		return denyDecision(DenyInvalidIdentifier, ErrInvalidIdentifier)
	}
	return allowDecision()
}

func (e *Engine) checkIP(ctx context.Context, req AdmissionRequest) Decision {
	if req.SkipIPCheck {
		return allowDecision()
	}

	allowed, err := e.access.IsAllowed(ctx, req.IP)
	if err != nil {
		e.metricInc(MetricStoreError)
		return denyDecision(DenyStoreUnavailable, e.wrapStoreErr(err))
	}
	if !allowed {
		return denyDecision(DenyIPBlocked, nil)
	}
	return allowDecision()
}

func (e *Engine) checkLockout(ctx context.Context, req AdmissionRequest) Decision {
	if req.AccountKey == "" {
		return allowDecision()
	}

	locked, err := e.lockout.IsLocked(ctx, req.AccountKey)
	if err != nil {
		e.metricInc(MetricStoreError)
		return denyDecision(DenyStoreUnavailable, e.wrapStoreErr(err))
	}
	if locked {
		return denyDecision(DenyLockedOut, nil)
	}
	return allowDecision()
}

func (e *Engine) checkRate(ctx context.Context, req AdmissionRequest) Decision {
	if req.Purpose == "" {
		return allowDecision()
	}

	client := NewClientIdentifier(req.IP, req.UserAgent)
	err := e.limiter.CheckAndConsume(ctx, req.Purpose, client.IP, client.UserAgentHash)
	if err == nil {
		return allowDecision()
	}

	switch {
	case errors.Is(err, rate.ErrRateLimited):
		return denyDecision(DenyRateLimited, nil)
	case errors.Is(err, rate.ErrUnknownPurpose):
		return denyDecision(DenyInvalidIdentifier, err)
	case errors.Is(err, store.ErrUnavailable):
		e.metricInc(MetricStoreError)
		if e.config.Throttle.FailOpen {
			e.logger.Warn("rate limit store unavailable, admitting by policy",
				zap.String("purpose", req.Purpose),
				zap.Error(err))
			return allowDecision()
		}
		return denyDecision(DenyStoreUnavailable, e.wrapStoreErr(err))
	default:
		return denyDecision(DenyStoreUnavailable, err)
	}
}

func (e *Engine) observeAdmit(ctx context.Context, req AdmissionRequest, decision Decision, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.Observe(MetricAdmitLatency, elapsed)
	}

	if decision.Allowed {
		e.metricInc(MetricAdmitAllowed)
		return
	}

	detail := map[string]string{"reason": decision.Reason.String()}
	if req.Purpose != "" {
		detail["purpose"] = req.Purpose
	}

	switch decision.Reason {
	case DenyRateLimited:
		e.metricInc(MetricAdmitDeniedRate)
		e.emitEvent(ctx, SecurityEvent{
			Type:       EventRateLimited,
			IP:         req.IP,
			AccountKey: req.AccountKey,
			Detail:     detail,
		})
	case DenyIPBlocked:
		e.metricInc(MetricAdmitDeniedIP)
		e.emitEvent(ctx, SecurityEvent{
			Type:       EventLoginFailed,
			IP:         req.IP,
			AccountKey: req.AccountKey,
			Detail:     detail,
		})
	case DenyLockedOut:
		e.metricInc(MetricAdmitDeniedLockout)
		e.emitEvent(ctx, SecurityEvent{
			Type:       EventLoginFailed,
			IP:         req.IP,
			AccountKey: req.AccountKey,
			Detail:     detail,
		})
	case DenyInvalidIdentifier:
		e.metricInc(MetricAdmitDeniedInvalid)
		e.emitEvent(ctx, SecurityEvent{
			Type:       EventLoginFailed,
			IP:         req.IP,
			AccountKey: req.AccountKey,
			Detail:     detail,
		})
	case DenyStoreUnavailable:
		// Auditing into an unreachable store is futile; log instead.
		e.metricInc(MetricAdmitDeniedUnavailable)
		e.logger.Warn("admission failed closed",
			zap.String("ip", req.IP),
			zap.String("purpose", req.Purpose),
			zap.Error(decision.Err))
	}
}
