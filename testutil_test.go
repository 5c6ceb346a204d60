package goAdmit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// newTestEngine builds an engine over miniredis with a small audit buffer.
// mutate may adjust the config before Build.
func newTestEngine(t *testing.T, sink AuditSink, mutate func(*Config)) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := DefaultConfig()
	cfg.Audit.BufferSize = 64
	if mutate != nil {
		mutate(&cfg)
	}

	builder := New().WithConfig(cfg).WithRedis(rdb)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func admitLogin(engine *Engine, ip, account string) Decision {
	return engine.Admit(context.Background(), AdmissionRequest{
		IP:         ip,
		UserAgent:  "test-agent",
		Purpose:    PurposeLogin,
		AccountKey: account,
	})
}
