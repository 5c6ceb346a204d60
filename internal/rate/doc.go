// Package rate provides the store-backed fixed-window limiter behind every
// throttled purpose ("short", "medium", "login", "refresh").
//
// # Window semantics
//
// Fixed-window counters: atomic increment with TTL-on-create. Key layout:
//
//	thr:<purpose>:<ip>:<uaFingerprint>
//
// The window resets completely when the TTL expires, so a burst straddling a
// window boundary can admit up to twice the limit. That imprecision is
// accepted; sliding windows are out of scope.
//
// # What this package must NOT do
//
//   - Decide fail-open/fail-closed policy on store outages (the engine does).
//   - Be imported outside the goAdmit module.
package rate
