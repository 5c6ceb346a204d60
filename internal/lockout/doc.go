// Package lockout implements the per-account brute-force state machine and
// the cross-account IP escalation on top of the keyed store.
//
// # State machine
//
// Unlocked: failed attempts accumulate in a windowed counter (fla:<account>).
// Locked: entered when the counter reaches the configured threshold; a
// self-expiring lockout record (alo:<account>) is written. Expired records
// are deleted lazily on the next IsLocked read; no background sweep exists.
// A fresh failure after expiry starts the count at one — partial failure
// history never carries over.
//
// # Escalation
//
// Each lockout also bumps a per-IP counter (ipa:<ip>) over a short window.
// Past the escalation threshold the IP is handed to the Blocker, defending
// against low-and-slow attacks spread across many accounts from one origin.
// All transitions ride the read/write path of ordinary traffic.
package lockout
