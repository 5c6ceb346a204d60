package goAdmit

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

// The default audit policy must shed events under buffer pressure; blocking
// dispatch would put sink latency on the admission path.
func TestDefaultAuditPolicyIsLossy(t *testing.T) {
	if !DefaultConfig().Audit.DropIfFull {
		t.Fatal("expected DropIfFull by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "zero max attempts",
			mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 },
		},
		{
			name:   "negative lockout duration",
			mutate: func(c *Config) { c.Security.LockoutDuration = -time.Minute },
		},
		{
			name:   "zero ip block ttl",
			mutate: func(c *Config) { c.Security.IPBlockTTL = 0 },
		},
		{
			name: "escalation enabled without window",
			mutate: func(c *Config) {
				c.Security.EscalationThreshold = 20
				c.Security.EscalationWindow = 0
			},
		},
		{
			name:   "malformed allow-list entry",
			mutate: func(c *Config) { c.Security.AllowedIPs = []string{"not-an-ip"} },
		},
		{
			name:   "malformed deny-list entry",
			mutate: func(c *Config) { c.Security.BlockedIPs = []string{"1.2.3"} },
		},
		{
			name:   "no throttle windows",
			mutate: func(c *Config) { c.Throttle.Windows = nil },
		},
		{
			name:   "missing login window",
			mutate: func(c *Config) { delete(c.Throttle.Windows, PurposeLogin) },
		},
		{
			name:   "missing refresh window",
			mutate: func(c *Config) { delete(c.Throttle.Windows, PurposeRefresh) },
		},
		{
			name: "non-positive window ttl",
			mutate: func(c *Config) {
				c.Throttle.Windows[PurposeShort] = ThrottleWindow{TTL: 0, Limit: 10}
			},
		},
		{
			name: "non-positive window limit",
			mutate: func(c *Config) {
				c.Throttle.Windows[PurposeShort] = ThrottleWindow{TTL: time.Minute, Limit: 0}
			},
		},
		{
			name: "audit enabled without event retention",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.EventTTL = 0
			},
		},
		{
			name: "audit enabled without attempt retention",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.AttemptTTL = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestAuditDisabledSkipsRetentionChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = false
	cfg.Audit.EventTTL = 0
	cfg.Audit.AttemptTTL = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled audit must not require retention: %v", err)
	}
}

func TestCloneConfigIsolatesCaller(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.AllowedIPs = []string{"10.0.0.1"}

	clone := cloneConfig(cfg)

	cfg.Security.AllowedIPs[0] = "10.0.0.2"
	cfg.Throttle.Windows[PurposeShort] = ThrottleWindow{TTL: time.Second, Limit: 1}

	if clone.Security.AllowedIPs[0] != "10.0.0.1" {
		t.Fatal("clone shares allow-list backing array")
	}
	if clone.Throttle.Windows[PurposeShort].Limit == 1 {
		t.Fatal("clone shares throttle window map")
	}
}
