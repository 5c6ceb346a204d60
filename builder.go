package goAdmit

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jcyrus/goAdmit/internal/access"
	"github.com/jcyrus/goAdmit/internal/lockout"
	"github.com/jcyrus/goAdmit/internal/rate"
	"github.com/jcyrus/goAdmit/store"
)

// Builder assembles an [Engine]. Configure it fluently, then call Build
// exactly once.
type Builder struct {
	config  Config
	backend store.Store
	redis   redis.UniversalClient
	sink    AuditSink
	logger  *zap.Logger

	built bool
}

// New creates a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the policy. The config is cloned at Build time, so
// later caller mutations cannot reach the engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore supplies the keyed store backing all counters and records.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.backend = st
	return b
}

// WithRedis is shorthand for WithStore(store.NewRedis(client)).
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink replaces the default store-backed sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger supplies the operational logger. Defaults to zap.NewNop().
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Admit latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the policy and wires the engine. A keyed store (or a
// Redis client) is required; everything else has defaults.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := b.backend
	if backend == nil && b.redis != nil {
		backend = store.NewRedis(b.redis)
	}
	if backend == nil {
		return nil, errors.New("store or redis client required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sink := b.sink
	if sink == nil && cfg.Audit.Enabled {
		sink = NewStoreSink(backend, cfg.Audit.EventTTL, logger)
	}

	engine := &Engine{
		config:  cfg,
		store:   backend,
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, sink),
		logger:  logger,
	}

	engine.access = access.New(backend, access.Config{
		AllowedIPs: cfg.Security.AllowedIPs,
		BlockedIPs: cfg.Security.BlockedIPs,
		BlockTTL:   cfg.Security.IPBlockTTL,
	})
	engine.limiter = rate.New(backend, throttleWindows(cfg.Throttle))
	engine.lockout = lockout.New(backend, lockout.Config{
		MaxAttempts:         cfg.Security.MaxLoginAttempts,
		Duration:            cfg.Security.LockoutDuration,
		EscalationWindow:    cfg.Security.EscalationWindow,
		EscalationThreshold: cfg.Security.EscalationThreshold,
	}, engine)

	b.built = true
	return engine, nil
}

func throttleWindows(cfg ThrottleConfig) map[string]rate.Window {
	windows := make(map[string]rate.Window, len(cfg.Windows))
	for purpose, window := range cfg.Windows {
		windows[purpose] = rate.Window{TTL: window.TTL, Limit: window.Limit}
	}
	return windows
}
