package goAdmit

import (
	"fmt"
	"net"
	"time"
)

// Built-in throttle purposes. "login" and "refresh" carry fixed policy
// windows; "short" and "medium" are tunable through the environment.
const (
	PurposeShort   = "short"
	PurposeMedium  = "medium"
	PurposeLogin   = "login"
	PurposeRefresh = "refresh"
)

// Config is the immutable per-process admission policy. It is constructed
// once at startup (directly, or via [ConfigFromEnv]) and passed to the
// Builder; nothing mutates it afterwards. The only runtime-growing state is
// the dynamic deny-list, which lives in the store, not here.
type Config struct {
	Security     SecurityConfig
	Throttle     ThrottleConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Collaborator CollaboratorConfig
}

// SecurityConfig tunes IP evaluation, lockout, and escalation.
type SecurityConfig struct {
	MaxLoginAttempts    int
	LockoutDuration     time.Duration
	AllowedIPs          []string
	BlockedIPs          []string
	IPBlockTTL          time.Duration
	EscalationWindow    time.Duration
	EscalationThreshold int
}

// ThrottleWindow is one named purpose bucket: window length and admission
// limit.
type ThrottleWindow struct {
	TTL   time.Duration
	Limit int
}

// ThrottleConfig holds the per-purpose windows. FailOpen controls the
// rate-limit path on store outage: over-throttling is considered less
// harmful than under-throttling, so the default is to deny.
type ThrottleConfig struct {
	Windows  map[string]ThrottleWindow
	FailOpen bool
}

// AuditConfig tunes the asynchronous audit dispatcher and the retention
// windows for events and login-attempt facts. DropIfFull defaults to true:
// a saturated buffer sheds events rather than stalling the admission path.
// Clearing it makes Emit wait for buffer room, for consumers that prefer
// backpressure over loss outside the decision path.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	EventTTL   time.Duration
	AttemptTTL time.Duration
}

// MetricsConfig enables the in-process counters and the Admit latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// CollaboratorConfig carries policy values consumed by external
// collaborators, not by the engine: the credential validator reads
// RequireStrongPasswords, the token issuer reads SessionTimeout.
type CollaboratorConfig struct {
	RequireStrongPasswords bool
	SessionTimeout         time.Duration
}

// DefaultConfig returns the documented default policy: 5 attempts before a
// 15-minute lockout, allow-all IP policy, 24h dynamic blocks, escalation at
// 20 cross-account failures per 15 minutes, and the four standard throttle
// purposes.
func DefaultConfig() Config {
	return Config{
		Security: SecurityConfig{
			MaxLoginAttempts:    5,
			LockoutDuration:     15 * time.Minute,
			IPBlockTTL:          24 * time.Hour,
			EscalationWindow:    15 * time.Minute,
			EscalationThreshold: 20,
		},
		Throttle: ThrottleConfig{
			Windows: map[string]ThrottleWindow{
				PurposeShort:   {TTL: time.Minute, Limit: 30},
				PurposeMedium:  {TTL: 5 * time.Minute, Limit: 100},
				PurposeLogin:   {TTL: time.Minute, Limit: 5},
				PurposeRefresh: {TTL: time.Minute, Limit: 10},
			},
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
			EventTTL:   7 * 24 * time.Hour,
			AttemptTTL: 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Collaborator: CollaboratorConfig{
			RequireStrongPasswords: true,
			SessionTimeout:         480 * time.Minute,
		},
	}
}

// Validate checks the policy for values that would make the engine unsafe
// or undecidable. All failures wrap [ErrConfigInvalid].
func (c Config) Validate() error {
	if c.Security.MaxLoginAttempts <= 0 {
		return fmt.Errorf("%w: MaxLoginAttempts must be positive", ErrConfigInvalid)
	}
	if c.Security.LockoutDuration <= 0 {
		return fmt.Errorf("%w: LockoutDuration must be positive", ErrConfigInvalid)
	}
	if c.Security.IPBlockTTL <= 0 {
		return fmt.Errorf("%w: IPBlockTTL must be positive", ErrConfigInvalid)
	}
	if c.Security.EscalationThreshold > 0 && c.Security.EscalationWindow <= 0 {
		return fmt.Errorf("%w: EscalationWindow must be positive when escalation is enabled", ErrConfigInvalid)
	}

	for _, ip := range c.Security.AllowedIPs {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("%w: malformed allow-list entry %q", ErrConfigInvalid, ip)
		}
	}
	for _, ip := range c.Security.BlockedIPs {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("%w: malformed deny-list entry %q", ErrConfigInvalid, ip)
		}
	}

	if len(c.Throttle.Windows) == 0 {
		return fmt.Errorf("%w: no throttle windows configured", ErrConfigInvalid)
	}
	for _, purpose := range []string{PurposeLogin, PurposeRefresh} {
		if _, ok := c.Throttle.Windows[purpose]; !ok {
			return fmt.Errorf("%w: required throttle purpose %q missing", ErrConfigInvalid, purpose)
		}
	}
	for purpose, window := range c.Throttle.Windows {
		if window.TTL <= 0 {
			return fmt.Errorf("%w: throttle purpose %q has non-positive window", ErrConfigInvalid, purpose)
		}
		if window.Limit <= 0 {
			return fmt.Errorf("%w: throttle purpose %q has non-positive limit", ErrConfigInvalid, purpose)
		}
	}

	if c.Audit.Enabled {
		if c.Audit.EventTTL <= 0 {
			return fmt.Errorf("%w: EventTTL must be positive", ErrConfigInvalid)
		}
		if c.Audit.AttemptTTL <= 0 {
			return fmt.Errorf("%w: AttemptTTL must be positive", ErrConfigInvalid)
		}
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg

	out.Security.AllowedIPs = append([]string(nil), cfg.Security.AllowedIPs...)
	out.Security.BlockedIPs = append([]string(nil), cfg.Security.BlockedIPs...)

	out.Throttle.Windows = make(map[string]ThrottleWindow, len(cfg.Throttle.Windows))
	for purpose, window := range cfg.Throttle.Windows {
		out.Throttle.Windows[purpose] = window
	}

	return out
}
