package goAdmit

import "time"

// SecurityReport is an operator-facing snapshot of the active admission
// policy. It contains no per-client state.
type SecurityReport struct {
	MaxLoginAttempts    int
	LockoutDuration     time.Duration
	AllowListSize       int
	DenyListSize        int
	IPBlockTTL          time.Duration
	EscalationThreshold int
	EscalationWindow    time.Duration
	ThrottleWindows     map[string]ThrottleWindow
	RateFailOpen        bool
	AuditEnabled        bool
	MetricsEnabled      bool
}

// SecurityReport summarizes the engine's effective configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	// Read back from the limiter rather than the config copy, so the report
	// reflects the windows actually enforced.
	windows := make(map[string]ThrottleWindow, len(e.config.Throttle.Windows))
	for purpose, window := range e.limiter.Windows() {
		windows[purpose] = ThrottleWindow{TTL: window.TTL, Limit: window.Limit}
	}

	return SecurityReport{
		MaxLoginAttempts:    e.config.Security.MaxLoginAttempts,
		LockoutDuration:     e.config.Security.LockoutDuration,
		AllowListSize:       len(e.config.Security.AllowedIPs),
		DenyListSize:        len(e.config.Security.BlockedIPs),
		IPBlockTTL:          e.config.Security.IPBlockTTL,
		EscalationThreshold: e.config.Security.EscalationThreshold,
		EscalationWindow:    e.config.Security.EscalationWindow,
		ThrottleWindows:     windows,
		RateFailOpen:        e.config.Throttle.FailOpen,
		AuditEnabled:        e.config.Audit.Enabled,
		MetricsEnabled:      e.config.Metrics.Enabled,
	}
}
