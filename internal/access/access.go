package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jcyrus/goAdmit/store"
)

// Config holds the static list material and the dynamic block TTL.
type Config struct {
	AllowedIPs []string
	BlockedIPs []string
	BlockTTL   time.Duration
}

// BlockRecord is the dynamic deny entry persisted per blocked IP.
type BlockRecord struct {
	Reason    string    `json:"reason"`
	BlockedAt time.Time `json:"blocked_at"`
}

// Evaluator answers IsAllowed and records dynamic blocks. Static sets are
// immutable after construction; all mutation goes through the store.
type Evaluator struct {
	store    store.Store
	allowed  map[string]struct{}
	denied   map[string]struct{}
	blockTTL time.Duration
}

// New builds an Evaluator from the configured lists.
func New(st store.Store, cfg Config) *Evaluator {
	e := &Evaluator{
		store:    st,
		allowed:  make(map[string]struct{}, len(cfg.AllowedIPs)),
		denied:   make(map[string]struct{}, len(cfg.BlockedIPs)),
		blockTTL: cfg.BlockTTL,
	}
	for _, ip := range cfg.AllowedIPs {
		e.allowed[ip] = struct{}{}
	}
	for _, ip := range cfg.BlockedIPs {
		e.denied[ip] = struct{}{}
	}
	return e
}

func blockKey(ip string) string {
	return "bip:" + ip
}

// IsAllowed reports whether ip may proceed. A store failure fails closed:
// the IP is reported as not allowed and the wrapped error is returned so the
// caller can distinguish denial from outage.
func (e *Evaluator) IsAllowed(ctx context.Context, ip string) (bool, error) {
	if _, ok := e.denied[ip]; ok {
		return false, nil
	}

	if len(e.allowed) > 0 {
		if _, ok := e.allowed[ip]; !ok {
			return false, nil
		}
	}

	_, err := e.store.Get(ctx, blockKey(ip))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("ip access check: %w", err)
}

// Block adds a dynamic deny record for ip with the configured TTL.
func (e *Evaluator) Block(ctx context.Context, ip, reason string) error {
	record := BlockRecord{
		Reason:    reason,
		BlockedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode block record: %w", err)
	}

	if err := e.store.Set(ctx, blockKey(ip), data, e.blockTTL); err != nil {
		return fmt.Errorf("write block record: %w", err)
	}
	return nil
}

// Blocked returns the dynamic block record for ip, or nil when none exists.
func (e *Evaluator) Blocked(ctx context.Context, ip string) (*BlockRecord, error) {
	data, err := e.store.Get(ctx, blockKey(ip))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record BlockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode block record: %w", err)
	}
	return &record, nil
}
