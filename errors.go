package goAdmit

import "errors"

var (
	// ErrConfigInvalid is returned by Config.Validate and Builder.Build for
	// malformed or missing policy values. Startup-fatal.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrInvalidIdentifier indicates a malformed IP or empty account key.
	// The associated request is denied, never errored through.
	ErrInvalidIdentifier = errors.New("invalid client identifier")
	// ErrStoreUnavailable indicates the keyed store could not be reached.
	// IP and lockout checks fail closed on it; rate checks may fail open
	// when ThrottleConfig.FailOpen is set.
	ErrStoreUnavailable = errors.New("admission store unavailable")
	// ErrAccountLocked is the sentinel behind Decision.Denial for an active
	// account lockout.
	ErrAccountLocked = errors.New("account locked")
	// ErrIPBlocked is the sentinel behind Decision.Denial when the IP failed
	// allow/deny evaluation.
	ErrIPBlocked = errors.New("ip blocked")
	// ErrRateLimited is the sentinel behind Decision.Denial for an exhausted
	// purpose window.
	ErrRateLimited = errors.New("rate limited")
	// ErrPrincipalNotFound is returned by PrincipalProvider implementations
	// when no principal matches the identity.
	ErrPrincipalNotFound = errors.New("principal not found")
)
