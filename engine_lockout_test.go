package goAdmit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func failAttempt(t *testing.T, engine *Engine, ip, account string) {
	t.Helper()
	if err := engine.RecordAttempt(context.Background(), ip, account, false, "test-agent"); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}
}

func TestLockoutAtThreshold(t *testing.T) {
	engine, _, done := newTestEngine(t, NoOpSink{}, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 3
	})
	defer done()

	ctx := context.Background()
	const account = "user@example.com"

	for i := 0; i < 2; i++ {
		failAttempt(t, engine, "1.2.3.4", account)
		locked, err := engine.IsLockedOut(ctx, account)
		if err != nil {
			t.Fatalf("IsLockedOut failed: %v", err)
		}
		if locked {
			t.Fatalf("locked after %d failures, threshold is 3", i+1)
		}
	}

	failAttempt(t, engine, "1.2.3.4", account)

	locked, err := engine.IsLockedOut(ctx, account)
	if err != nil {
		t.Fatalf("IsLockedOut failed: %v", err)
	}
	if !locked {
		t.Fatal("expected lockout exactly at threshold")
	}

	until, attempts, err := engine.LockoutStatus(ctx, account)
	if err != nil {
		t.Fatalf("LockoutStatus failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", attempts)
	}
	if remaining := time.Until(until); remaining <= 0 || remaining > 15*time.Minute {
		t.Fatalf("unexpected lockout deadline %v", until)
	}
}

func TestLockoutExpiresAndCountRestarts(t *testing.T) {
	engine, mr, done := newTestEngine(t, NoOpSink{}, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 3
	})
	defer done()

	ctx := context.Background()
	const account = "user@example.com"

	for i := 0; i < 3; i++ {
		failAttempt(t, engine, "1.2.3.4", account)
	}
	if locked, _ := engine.IsLockedOut(ctx, account); !locked {
		t.Fatal("expected lockout")
	}

	mr.FastForward(16 * time.Minute)

	locked, err := engine.IsLockedOut(ctx, account)
	if err != nil {
		t.Fatalf("IsLockedOut failed: %v", err)
	}
	if locked {
		t.Fatal("expected lockout to expire")
	}

	// Prior failure history must not carry over: two fresh failures stay
	// under the threshold of three.
	failAttempt(t, engine, "1.2.3.4", account)
	failAttempt(t, engine, "1.2.3.4", account)
	if locked, _ := engine.IsLockedOut(ctx, account); locked {
		t.Fatal("expected fresh count after expiry, got immediate lockout")
	}

	failAttempt(t, engine, "1.2.3.4", account)
	if locked, _ := engine.IsLockedOut(ctx, account); !locked {
		t.Fatal("expected lockout at fresh threshold")
	}
}

func TestSuccessLeavesFailureStreak(t *testing.T) {
	engine, _, done := newTestEngine(t, NoOpSink{}, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 3
	})
	defer done()

	ctx := context.Background()
	const account = "user@example.com"

	failAttempt(t, engine, "1.2.3.4", account)
	failAttempt(t, engine, "1.2.3.4", account)

	if err := engine.RecordAttempt(ctx, "1.2.3.4", account, true, "test-agent"); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}

	count, err := engine.FailureCount(ctx, account)
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("failure count = %d after success, want streak intact at 2", count)
	}

	// The streak is left to expire with the window, so one more failure
	// still trips the lockout.
	failAttempt(t, engine, "1.2.3.4", account)
	if locked, _ := engine.IsLockedOut(ctx, account); !locked {
		t.Fatal("expected success to leave the failure streak intact")
	}
}

func TestEscalationBlocksOriginIP(t *testing.T) {
	sink := NewChannelSink(64)
	engine, _, done := newTestEngine(t, sink, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 1
		cfg.Security.EscalationThreshold = 20
	})
	defer done()

	ctx := context.Background()
	const ip = "6.6.6.6"

	for i := 0; i < 21; i++ {
		failAttempt(t, engine, ip, fmt.Sprintf("victim%02d@example.com", i))
	}

	allowed, err := engine.IsIPAllowed(ctx, ip)
	if err != nil {
		t.Fatalf("IsIPAllowed failed: %v", err)
	}
	if allowed {
		t.Fatal("expected origin IP to be blocked after cross-account escalation")
	}

	d := engine.Admit(ctx, AdmissionRequest{IP: ip, UserAgent: "test-agent", Purpose: PurposeLogin})
	if d.Allowed || d.Reason != DenyIPBlocked {
		t.Fatalf("expected IP-blocked denial, got %+v", d)
	}

	engine.Close() // flush the dispatcher before inspecting the sink

	var sawBlock bool
	for len(sink.Events()) > 0 {
		if event := <-sink.Events(); event.Type == EventIPBlocked {
			sawBlock = true
			if event.IP != ip {
				t.Fatalf("IP_BLOCKED event for wrong ip %q", event.IP)
			}
		}
	}
	if !sawBlock {
		t.Fatal("expected IP_BLOCKED event")
	}
}

func TestEscalationStaysBelowThreshold(t *testing.T) {
	engine, _, done := newTestEngine(t, NoOpSink{}, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 1
		cfg.Security.EscalationThreshold = 20
	})
	defer done()

	ctx := context.Background()
	const ip = "7.7.7.7"

	for i := 0; i < 20; i++ {
		failAttempt(t, engine, ip, fmt.Sprintf("victim%02d@example.com", i))
	}

	allowed, err := engine.IsIPAllowed(ctx, ip)
	if err != nil {
		t.Fatalf("IsIPAllowed failed: %v", err)
	}
	if !allowed {
		t.Fatal("IP blocked at threshold; block requires exceeding it")
	}
}

// Three failures lock the account; a fourth attempt is denied by the lockout
// check before any credential verification could run, and without touching
// the rate-limit budget.
func TestLockedAccountDeniedBeforeVerification(t *testing.T) {
	engine, _, done := newTestEngine(t, NoOpSink{}, func(cfg *Config) {
		cfg.Security.MaxLoginAttempts = 3
	})
	defer done()

	const account = "user@example.com"
	const ip = "1.2.3.4"

	for i := 0; i < 3; i++ {
		failAttempt(t, engine, ip, account)
	}

	d := admitLogin(engine, ip, account)
	if d.Allowed || d.Reason != DenyLockedOut {
		t.Fatalf("expected lockout denial, got %+v", d)
	}

	// The denial happened before rate consumption, so the login window
	// still has its full budget for other accounts behind this client.
	for i := 0; i < 5; i++ {
		if d := admitLogin(engine, ip, "other@example.com"); !d.Allowed {
			t.Fatalf("call %d: lockout denial consumed rate budget: %+v", i+1, d)
		}
	}
}

func TestRecordAttemptRejectsMalformedIdentifiers(t *testing.T) {
	engine, _, done := newTestEngine(t, NoOpSink{}, nil)
	defer done()

	ctx := context.Background()

	if err := engine.RecordAttempt(ctx, "not-an-ip", "user@example.com", false, "ua"); err != ErrInvalidIdentifier {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	if err := engine.RecordAttempt(ctx, "1.2.3.4", "", false, "ua"); err != ErrInvalidIdentifier {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}
