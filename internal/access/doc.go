// Package access implements the IP allow/deny evaluation used ahead of every
// admission decision.
//
// # Semantics
//
// With an empty allow-list every IP is admitted unless it appears in the
// static deny-list or has a dynamic deny record in the store. With a
// non-empty allow-list an IP must appear in it and must not be denied.
// Dynamic deny records self-expire; the dynamic list is always a superset of
// the static configured list within a process lifetime.
//
// # What this package must NOT do
//
//   - Emit audit events or metrics (the engine observes Block through its
//     own wrapper).
//   - Import goAdmit or any sibling internal package other than store.
package access
