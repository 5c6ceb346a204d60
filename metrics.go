package goAdmit

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricAdmitAllowed counts requests admitted by the facade.
	MetricAdmitAllowed MetricID = iota
	// MetricAdmitDeniedIP counts denials from IP allow/deny evaluation.
	MetricAdmitDeniedIP
	// MetricAdmitDeniedLockout counts denials from active account lockouts.
	MetricAdmitDeniedLockout
	// MetricAdmitDeniedRate counts denials from exhausted throttle windows.
	MetricAdmitDeniedRate
	// MetricAdmitDeniedInvalid counts denials from malformed identifiers.
	MetricAdmitDeniedInvalid
	// MetricAdmitDeniedUnavailable counts fail-closed denials on store outage.
	MetricAdmitDeniedUnavailable
	// MetricLoginSuccess counts successful authentication outcomes recorded.
	MetricLoginSuccess
	// MetricLoginFailure counts failed authentication outcomes recorded.
	MetricLoginFailure
	// MetricLockoutIssued counts account lockout transitions.
	MetricLockoutIssued
	// MetricIPBlocked counts dynamic IP blocks, escalation included.
	MetricIPBlocked
	// MetricTokenRefresh counts recorded token refresh events.
	MetricTokenRefresh
	// MetricStoreError counts store round-trips that failed.
	MetricStoreError
	// MetricAdmitLatency is the Admit latency histogram.
	MetricAdmitLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's lock-free counters and the Admit latency
// histogram. All write paths are allocation-free.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms,
// safe to hand to exporters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics registry honoring the config toggles.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. No-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records an Admit latency sample. No-op unless latency histograms
// are enabled.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAdmitLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAdmitLatency].buckets[i])
		}
		s.Histograms[MetricAdmitLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
