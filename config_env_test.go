package goAdmit

import (
	"errors"
	"testing"
	"time"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}

	if cfg.Security.MaxLoginAttempts != 5 {
		t.Fatalf("MaxLoginAttempts = %d, want 5", cfg.Security.MaxLoginAttempts)
	}
	if cfg.Security.LockoutDuration != 15*time.Minute {
		t.Fatalf("LockoutDuration = %v, want 15m", cfg.Security.LockoutDuration)
	}
	if got := cfg.Throttle.Windows[PurposeShort]; got.TTL != time.Minute || got.Limit != 30 {
		t.Fatalf("short window = %+v, want 60s/30", got)
	}
	if got := cfg.Throttle.Windows[PurposeMedium]; got.TTL != 5*time.Minute || got.Limit != 100 {
		t.Fatalf("medium window = %+v, want 300s/100", got)
	}
	if cfg.Throttle.FailOpen {
		t.Fatal("FailOpen must default to false")
	}
	if !cfg.Collaborator.RequireStrongPasswords {
		t.Fatal("RequireStrongPasswords must default to true")
	}
	if cfg.Collaborator.SessionTimeout != 480*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 480m", cfg.Collaborator.SessionTimeout)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_DURATION", "30")
	t.Setenv("ALLOWED_IPS", "10.0.0.1, 10.0.0.2")
	t.Setenv("BLOCKED_IPS", "192.168.1.9")
	t.Setenv("THROTTLE_TTL", "5000")
	t.Setenv("THROTTLE_LIMIT", "7")
	t.Setenv("THROTTLE_TTL_MEDIUM", "120000")
	t.Setenv("THROTTLE_LIMIT_MEDIUM", "40")
	t.Setenv("THROTTLE_FAIL_OPEN", "true")
	t.Setenv("REQUIRE_STRONG_PASSWORDS", "false")
	t.Setenv("SESSION_TIMEOUT", "60")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}

	if cfg.Security.MaxLoginAttempts != 3 {
		t.Fatalf("MaxLoginAttempts = %d, want 3", cfg.Security.MaxLoginAttempts)
	}
	if cfg.Security.LockoutDuration != 30*time.Minute {
		t.Fatalf("LockoutDuration = %v, want 30m", cfg.Security.LockoutDuration)
	}
	if len(cfg.Security.AllowedIPs) != 2 || cfg.Security.AllowedIPs[1] != "10.0.0.2" {
		t.Fatalf("AllowedIPs = %v", cfg.Security.AllowedIPs)
	}
	if len(cfg.Security.BlockedIPs) != 1 || cfg.Security.BlockedIPs[0] != "192.168.1.9" {
		t.Fatalf("BlockedIPs = %v", cfg.Security.BlockedIPs)
	}
	if got := cfg.Throttle.Windows[PurposeShort]; got.TTL != 5*time.Second || got.Limit != 7 {
		t.Fatalf("short window = %+v, want 5s/7", got)
	}
	if got := cfg.Throttle.Windows[PurposeMedium]; got.TTL != 2*time.Minute || got.Limit != 40 {
		t.Fatalf("medium window = %+v, want 120s/40", got)
	}
	if !cfg.Throttle.FailOpen {
		t.Fatal("expected FailOpen override")
	}
	if cfg.Collaborator.RequireStrongPasswords {
		t.Fatal("expected RequireStrongPasswords override")
	}
	if cfg.Collaborator.SessionTimeout != time.Hour {
		t.Fatalf("SessionTimeout = %v, want 1h", cfg.Collaborator.SessionTimeout)
	}
}

// Login and refresh windows are fixed policy, not environment knobs.
func TestConfigFromEnvLeavesFixedWindowsAlone(t *testing.T) {
	t.Setenv("THROTTLE_TTL", "1000")
	t.Setenv("THROTTLE_LIMIT", "1")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}

	if got := cfg.Throttle.Windows[PurposeLogin]; got.TTL != time.Minute || got.Limit != 5 {
		t.Fatalf("login window = %+v, want 60s/5", got)
	}
	if got := cfg.Throttle.Windows[PurposeRefresh]; got.TTL != time.Minute || got.Limit != 10 {
		t.Fatalf("refresh window = %+v, want 60s/10", got)
	}
}

func TestConfigFromEnvRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric attempts", "MAX_LOGIN_ATTEMPTS", "many"},
		{"non-numeric throttle ttl", "THROTTLE_TTL", "1m"},
		{"non-boolean fail open", "THROTTLE_FAIL_OPEN", "maybe"},
		{"malformed allow-list entry", "ALLOWED_IPS", "10.0.0.1,nope"},
		{"zero attempts fails validation", "MAX_LOGIN_ATTEMPTS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := ConfigFromEnv()
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}
