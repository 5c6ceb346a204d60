package goAdmit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ClientIdentifier groups requests by network origin plus a one-way digest
// of the client-supplied User-Agent, so raw client metadata is never stored
// long-term.
type ClientIdentifier struct {
	IP            string
	UserAgentHash string
}

const userAgentHashLen = 16

// NewClientIdentifier derives the identifier for an ip/userAgent pair. The
// fingerprint is the first 16 hex characters of SHA-256 over the raw string.
func NewClientIdentifier(ip, userAgent string) ClientIdentifier {
	sum := sha256.Sum256([]byte(userAgent))
	return ClientIdentifier{
		IP:            ip,
		UserAgentHash: hex.EncodeToString(sum[:])[:userAgentHashLen],
	}
}

// DenyReason classifies why an admission request was refused.
type DenyReason uint8

const (
	// DenyNone means the request was allowed.
	DenyNone DenyReason = iota
	// DenyIPBlocked means the IP failed allow/deny evaluation.
	DenyIPBlocked
	// DenyLockedOut means the account key has an active lockout.
	DenyLockedOut
	// DenyRateLimited means the purpose window is exhausted.
	DenyRateLimited
	// DenyInvalidIdentifier means the IP or account key was malformed.
	DenyInvalidIdentifier
	// DenyStoreUnavailable means the store was unreachable and the check
	// failed closed.
	DenyStoreUnavailable
)

// String implements fmt.Stringer for logging and audit detail payloads.
func (r DenyReason) String() string {
	switch r {
	case DenyNone:
		return "none"
	case DenyIPBlocked:
		return "ip_blocked"
	case DenyLockedOut:
		return "account_locked"
	case DenyRateLimited:
		return "rate_limited"
	case DenyInvalidIdentifier:
		return "invalid_identifier"
	case DenyStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// AdmissionRequest carries everything the facade needs for one decision.
// AccountKey is optional; when set, the lockout check runs between the IP
// and rate-limit checks. SkipIPCheck exists for endpoints that must stay
// reachable from blocked origins (health probes, unblock flows).
type AdmissionRequest struct {
	IP          string
	UserAgent   string
	Purpose     string
	AccountKey  string
	SkipIPCheck bool
}

// Decision is the structured admission verdict. Denial is a normal value,
// not an error; Err is populated only for operational faults (store outage)
// that forced a fail-closed denial.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Err     error
}

// Denial maps the decision to its sentinel error for callers that propagate
// denials through error chains. Returns nil when the request was allowed.
func (d Decision) Denial() error {
	switch d.Reason {
	case DenyIPBlocked:
		return ErrIPBlocked
	case DenyLockedOut:
		return ErrAccountLocked
	case DenyRateLimited:
		return ErrRateLimited
	case DenyInvalidIdentifier:
		return ErrInvalidIdentifier
	case DenyStoreUnavailable:
		if d.Err != nil {
			return d.Err
		}
		return ErrStoreUnavailable
	default:
		return nil
	}
}

func allowDecision() Decision {
	return Decision{Allowed: true}
}

func denyDecision(reason DenyReason, err error) Decision {
	return Decision{Reason: reason, Err: err}
}

// LoginAttempt is the immutable fact persisted for every authentication
// outcome. Write-only within the retention window; decisions never read it.
type LoginAttempt struct {
	IP            string    `json:"ip"`
	AccountKey    string    `json:"account_key"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	UserAgentHash string    `json:"user_agent_hash"`
}

// BlockedIPInfo describes an active dynamic IP block: why it was issued and
// when. Returned by [Engine.BlockedIP].
type BlockedIPInfo struct {
	Reason    string
	BlockedAt time.Time
}

// Principal is the minimal account record the admission boundary needs from
// its persistence collaborator.
type Principal struct {
	ID           string
	Identity     string
	PasswordHash string
}

// PrincipalProvider is the narrow lookup contract consumed at the request
// boundary. The engine itself never touches it; it exists so integrations
// share one shape for the external principal store.
type PrincipalProvider interface {
	FindByIdentity(ctx context.Context, identity string) (*Principal, error)
}

// CredentialVerifier checks a submitted secret against a principal. The
// engine performs no hashing or comparison itself; verification outcomes
// feed Engine.RecordAttempt.
type CredentialVerifier interface {
	Verify(ctx context.Context, principal *Principal, secret string) (bool, error)
}
