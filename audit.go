package goAdmit

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jcyrus/goAdmit/store"
)

// EventType tags a SecurityEvent.
type EventType string

const (
	// EventLoginSuccess records a successful authentication outcome.
	EventLoginSuccess EventType = "LOGIN_SUCCESS"
	// EventLoginFailed records a failed authentication outcome or an
	// admission denial on an authentication path.
	EventLoginFailed EventType = "LOGIN_FAILED"
	// EventIPBlocked records a dynamic IP block.
	EventIPBlocked EventType = "IP_BLOCKED"
	// EventRateLimited records a throttle-window denial.
	EventRateLimited EventType = "RATE_LIMITED"
	// EventTokenRefresh records a token refresh at the boundary.
	EventTokenRefresh EventType = "TOKEN_REFRESH"
)

// SecurityEvent is one append-only audit fact. Events are informational:
// they are retained for the configured window and never read back to make
// admission decisions.
type SecurityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"event_type"`
	IP         string            `json:"ip,omitempty"`
	AccountKey string            `json:"account_key,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// AuditSink receives security events from the dispatcher. Emit must never
// block the admission path; the dispatcher already decouples it, but sinks
// should still return promptly.
type AuditSink interface {
	Emit(ctx context.Context, event SecurityEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements AuditSink.
func (NoOpSink) Emit(context.Context, SecurityEvent) {}

// ChannelSink forwards events to a channel, mainly for tests and custom
// consumers.
type ChannelSink struct {
	events chan SecurityEvent
}

// NewChannelSink creates a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan SecurityEvent, buffer),
	}
}

// Emit implements AuditSink.
func (s *ChannelSink) Emit(ctx context.Context, event SecurityEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the receiving side of the sink.
func (s *ChannelSink) Events() <-chan SecurityEvent {
	return s.events
}

// JSONWriterSink writes one JSON line per event to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements AuditSink.
func (s *JSONWriterSink) Emit(ctx context.Context, event SecurityEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// StoreSink persists events into the keyed store for the retention window.
// Keys combine the event timestamp with a random tie-breaker so high-rate
// writers cannot collide. Write failures are logged, never surfaced.
type StoreSink struct {
	store  store.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewStoreSink creates a StoreSink retaining events for ttl.
func NewStoreSink(st store.Store, ttl time.Duration, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{store: st, ttl: ttl, logger: logger}
}

func eventKey(t time.Time) string {
	return "sev:" + strconv.FormatInt(t.UnixNano(), 10) + ":" + uuid.NewString()
}

// Emit implements AuditSink.
func (s *StoreSink) Emit(ctx context.Context, event SecurityEvent) {
	if s == nil || s.store == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("audit event encode failed", zap.Error(err))
		return
	}

	if err := s.store.Set(ctx, eventKey(event.Timestamp), data, s.ttl); err != nil {
		s.logger.Warn("audit event write failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
