// Package goAdmit provides a request-admission control engine: per-request
// allow/deny decisions driven by IP reputation, fixed-window rate quotas,
// progressive account lockout with cross-account IP escalation, and an
// append-only security-event audit trail.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. All shared mutable state lives in the keyed store and is
// mediated through its atomic increment, so no in-process locks are held on
// the admission path.
//
// # Architecture boundaries
//
// goAdmit is the public surface. It exposes [Engine], [Builder], [Config],
// the [AuditSink] family, and value types (Decision, SecurityEvent,
// ClientIdentifier). Policy internals — IP evaluation, window accounting,
// lockout state transitions — live under internal/ and are never exported.
// The store contract and its Redis and in-memory variants live in the store
// sub-package.
//
// # What this package must NOT do
//
//   - Verify credentials, hash passwords, or sign tokens. Those belong to
//     external collaborators reached through [PrincipalProvider] and
//     [CredentialVerifier].
//   - Construct transport responses. Denial is a [Decision] value; mapping
//     it to 403/429 is the boundary's job (see the middleware package).
//   - Block an admission decision on audit I/O. Event recording is
//     asynchronous and failures are logged, never propagated.
//
// # Performance contract
//
// Admit is the hot path. It performs at most three store round-trips
// (IP check, lockout read, counter increment) and allocates only the
// returned Decision and derived key strings.
package goAdmit
